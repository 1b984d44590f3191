// Package pex decodes compiled Papyrus scripts.
//
// A script is big-endian: a header, a string table, optional debug line
// tables, user flag names, and a list of objects. Every other section
// refers to text by index into the string table. Resolving a structural
// field (a name, a type, a docstring, an identifier operand) marks its
// entry used; entries that stay unused after the decode are the literal
// string operands of the script's code, which is what translators need.
//
//	s, err := pex.Open("Scripts/MyQuestScript.pex")
//	if err != nil {
//		return err
//	}
//	for _, text := range s.Literals() {
//		fmt.Println(text)
//	}
//
// Each object declares its byte size, but the object body (variables,
// properties, states and their functions) is self-describing and is
// decoded without being bounded by it. A mismatch is logged. A body
// failure inside the declared span is recorded on Object.Err with the
// rest of the span kept in Object.Unparsed, and decoding continues with
// the next object.
// Failures in the header or the sections before the objects abort the
// decode.
package pex
