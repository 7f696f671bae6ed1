package model

// MutationWriter is the record-level sink mutations serialize
// themselves to. WriteUTF interns the string into the table's string
// table and emits its integer index; WriteMutation emits a complete
// nested record including id and type tag, which is how groups persist
// their members.
type MutationWriter interface {
	WriteInt(v int32) error
	WriteShort(v int16) error
	WriteByte(v byte) error
	WriteBool(v bool) error
	WriteUTF(s string) error
	WriteMutation(m Mutation) error
}

// MutationReader is the record-level source mutation deserializers read
// from, mirroring MutationWriter.
type MutationReader interface {
	ReadInt() (int32, error)
	ReadShort() (int16, error)
	ReadByte() (byte, error)
	ReadBool() (bool, error)
	ReadUTF() (string, error)
	ReadMutation() (Mutation, error)
}
