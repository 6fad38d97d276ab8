// Package formconfig defines the form document model and turns JSON or YAML
// text into a typed FormConfig. Decoding goes through an untyped tree and
// mapstructure so both encodings share one set of conversion hooks; Validate
// reports structural problems without stopping at the first one.
package formconfig
