// Package version implements package versions and version constraints the
// way conda-style package managers order them.
//
// # Versions
//
// A version is an optional epoch, a base and an optional local part:
//
//	[epoch!]segment(.segment)*[+local]
//
// Segments are split on ".", "-" and "_" and then into alternating digit and
// letter runs. Runs compare in the order dev < any other string < number <
// post, so:
//
//	1.0dev < 1.0a1 < 1.0b2 < 1.0rc1 < 1.0 == 1.0.0 < 1.0.post1 < 1.0.1 < 1.1
//
// Missing trailing components are treated as 0. The local part only matters
// when the bases are equal, and a version without one sorts first.
//
// # Constraints
//
// ParseConstraint builds an immutable tree of leaves joined by And and Or:
//
//	c, err := version.ParseConstraint(">=0.7,<0.8|1.2.*")
//	if err != nil {
//	    return err
//	}
//	ok := c.Matches(version.MustParse("0.7.4")) // true
//
// Supported operators are ==, !=, >, >=, <, <=, ~= and the prefix forms
// "=1.2" and "1.2.*". A bare version means an exact match and "*" matches
// everything. Terms joined by "," or whitespace are ANDed, "|" separates OR
// alternatives and binds looser than AND.
package version
