// Package serializer writes rendered recipes in JSON, YAML or table form.
//
// JSON and YAML use the json and yaml struct tags of the written values.
// The table format prints values implementing Tabular as columns and
// flattens anything else into FIELD/VALUE rows, using String for values
// that implement fmt.Stringer.
//
// Usage:
//
//	w, err := serializer.NewFileWriterOrStdout(serializer.FormatYAML, path)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	return w.Serialize(ctx, outputs)
package serializer
