package model

// FieldCount is the number of features the classifier consumes.
const FieldCount = 30

// schemaFields is the training-time column order. Position i of every
// FeatureVector holds schemaFields[i]; reordering breaks every model artifact.
var schemaFields = [FieldCount]string{
	"Time",
	"V1", "V2", "V3", "V4", "V5", "V6", "V7",
	"V8", "V9", "V10", "V11", "V12", "V13", "V14",
	"V15", "V16", "V17", "V18", "V19", "V20", "V21",
	"V22", "V23", "V24", "V25", "V26", "V27", "V28",
	"Amount",
}

var schemaIndex = func() map[string]int {
	idx := make(map[string]int, FieldCount)
	for i, name := range schemaFields {
		idx[name] = i
	}
	return idx
}()

// OrderedFields returns a copy of the schema field names in model order.
func OrderedFields() []string {
	out := make([]string, FieldCount)
	copy(out, schemaFields[:])
	return out
}

// FieldIndex returns the schema position of name, or -1 if name is not a schema field.
func FieldIndex(name string) int {
	if i, ok := schemaIndex[name]; ok {
		return i
	}
	return -1
}

// FieldName returns the schema field at position i.
func FieldName(i int) string {
	return schemaFields[i]
}

// SameFields reports whether names lists exactly the schema fields in order.
func SameFields(names []string) bool {
	if len(names) != FieldCount {
		return false
	}
	for i, name := range names {
		if name != schemaFields[i] {
			return false
		}
	}
	return true
}
