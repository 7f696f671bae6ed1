// Package adapter holds the infrastructure components behind the
// mutation engine: the binary mutation-table codec, the serialization
// registry, the operator configuration parser, verification and class
// path scanning, and the presentation adapters.
package adapter

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	m "jmute.dev/pkg/jmute/internal/model"
)

// ErrFormat distinguishes a corrupt or truncated mutation table from
// resource errors such as a missing file.
var ErrFormat = errors.New("malformed mutation table")

// mutation table header: 8-byte string-table offset, 4-byte record
// count, patched in on close.
const mutHeaderLen = 12

// MutationFileWriter writes a mutation table progressively: records are
// appended as they arrive and the header plus string table are filled in
// on Close. Strings written through WriteUTF are interned into the
// string table and stored as integer indices.
type MutationFileWriter struct {
	f       *os.File
	strings *m.StringTable
	nextID  int32
}

// NewMutationFileWriter truncates any pre-existing file at path and
// positions the writer past the header. The supplied string table is
// extended in place, preserving indices carried over from a prior
// session.
func NewMutationFileWriter(path string, strings *m.StringTable) (*MutationFileWriter, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(mutHeaderLen, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return &MutationFileWriter{f: f, strings: strings, nextID: 1}, nil
}

// StringTable returns the table strings are interned into.
func (w *MutationFileWriter) StringTable() *m.StringTable {
	return w.strings
}

// WriteInt writes a big-endian 4-byte integer.
func (w *MutationFileWriter) WriteInt(v int32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	_, err := w.f.Write(buf[:])
	return err
}

// WriteShort writes a big-endian 2-byte integer.
func (w *MutationFileWriter) WriteShort(v int16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(v))
	_, err := w.f.Write(buf[:])
	return err
}

// WriteByte writes a single byte.
func (w *MutationFileWriter) WriteByte(v byte) error {
	_, err := w.f.Write([]byte{v})
	return err
}

// WriteBool writes a single 0/1 byte.
func (w *MutationFileWriter) WriteBool(v bool) error {
	b := byte(0)
	if v {
		b = 1
	}
	_, err := w.f.Write([]byte{b})
	return err
}

// WriteUTF interns s and writes its string-table index.
func (w *MutationFileWriter) WriteUTF(s string) error {
	return w.WriteInt(w.strings.AddString(s))
}

// WriteMutation writes one complete record: id, type tag, then the
// mutation's own payload. A mutation with no assigned id receives the
// writer's next sequential id, starting at 1 for each fresh table.
func (w *MutationFileWriter) WriteMutation(mu m.Mutation) error {
	if !mu.ID().Assigned() {
		mu.SetID(m.NewMutationID(w.nextID))
		w.nextID++
	}
	if err := w.WriteInt(mu.ID().Int()); err != nil {
		return err
	}
	if err := w.WriteUTF(mu.Type()); err != nil {
		return err
	}
	return mu.Serialize(w)
}

// Close appends the string table, patches the header with the table's
// offset and the given record count, and releases the file.
func (w *MutationFileWriter) Close(count int32) error {
	tableOff, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		w.f.Close()
		return err
	}
	entries := w.strings.Entries()
	if err := w.WriteInt(int32(len(entries))); err != nil {
		w.f.Close()
		return err
	}
	for _, e := range entries {
		if err := w.WriteInt(e.Index); err != nil {
			w.f.Close()
			return err
		}
		utf, err := encodeJavaUTF(e.Value)
		if err != nil {
			w.f.Close()
			return err
		}
		if _, err := w.f.Write(utf); err != nil {
			w.f.Close()
			return err
		}
	}

	var header [mutHeaderLen]byte
	binary.BigEndian.PutUint64(header[:8], uint64(tableOff))
	binary.BigEndian.PutUint32(header[8:], uint32(count))
	if _, err := w.f.WriteAt(header[:], 0); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// MutationFileReader reads a mutation table sequentially. The string
// table is loaded fully into memory on construction so record payloads
// can resolve their string indices as they stream.
type MutationFileReader struct {
	f       *os.File
	strings *m.StringTable
	count   int32
}

// NewMutationFileReader opens a mutation table with a fresh string
// table.
func NewMutationFileReader(path string) (*MutationFileReader, error) {
	return NewMutationFileReaderWith(path, m.NewStringTable())
}

// NewMutationFileReaderWith opens a mutation table, replaying its string
// table into strings so a later writer can reuse the same indices.
func NewMutationFileReaderWith(path string, strings *m.StringTable) (*MutationFileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &MutationFileReader{f: f, strings: strings}
	if err := r.init(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *MutationFileReader) init() error {
	var header [mutHeaderLen]byte
	if _, err := io.ReadFull(r.f, header[:]); err != nil {
		return fmt.Errorf("%w: short header", ErrFormat)
	}
	tableOff := int64(binary.BigEndian.Uint64(header[:8]))
	r.count = int32(binary.BigEndian.Uint32(header[8:]))

	if _, err := r.f.Seek(tableOff, io.SeekStart); err != nil {
		return fmt.Errorf("%w: bad string table offset %d", ErrFormat, tableOff)
	}
	entryCount, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("%w: missing string table", ErrFormat)
	}
	for i := int32(0); i < entryCount; i++ {
		index, err := r.ReadInt()
		if err != nil {
			return fmt.Errorf("%w: truncated string table", ErrFormat)
		}
		var lenBuf [2]byte
		if _, err := io.ReadFull(r.f, lenBuf[:]); err != nil {
			return fmt.Errorf("%w: truncated string table", ErrFormat)
		}
		utf := make([]byte, binary.BigEndian.Uint16(lenBuf[:]))
		if _, err := io.ReadFull(r.f, utf); err != nil {
			return fmt.Errorf("%w: truncated string table", ErrFormat)
		}
		s, err := decodeJavaUTF(utf)
		if err != nil {
			return err
		}
		r.strings.AddStringAt(s, index)
	}

	_, err = r.f.Seek(mutHeaderLen, io.SeekStart)
	return err
}

// Count returns the number of top-level mutation records.
func (r *MutationFileReader) Count() int32 {
	return r.count
}

// StringTable returns the table string indices resolve through.
func (r *MutationFileReader) StringTable() *m.StringTable {
	return r.strings
}

// ReadInt reads a big-endian 4-byte integer.
func (r *MutationFileReader) ReadInt() (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r.f, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

// ReadShort reads a big-endian 2-byte integer.
func (r *MutationFileReader) ReadShort() (int16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r.f, buf[:]); err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(buf[:])), nil
}

// ReadByte reads a single byte.
func (r *MutationFileReader) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r.f, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadBool reads a single 0/1 byte.
func (r *MutationFileReader) ReadBool() (bool, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r.f, buf[:]); err != nil {
		return false, err
	}
	return buf[0] != 0, nil
}

// ReadUTF reads a string-table index and resolves it.
func (r *MutationFileReader) ReadUTF() (string, error) {
	index, err := r.ReadInt()
	if err != nil {
		return "", err
	}
	s, err := r.strings.LookupIndex(index)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return s, nil
}

// ReadMutation reads one complete record, dispatching on the type tag
// through the mutation type registry.
func (r *MutationFileReader) ReadMutation() (m.Mutation, error) {
	id, err := r.ReadInt()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated mutation record", ErrFormat)
	}
	tag, err := r.ReadUTF()
	if err != nil {
		return nil, err
	}
	deserialize, err := lookupMutationType(tag)
	if err != nil {
		return nil, err
	}
	mu, err := deserialize(r)
	if err != nil {
		return nil, err
	}
	mu.SetID(m.NewMutationID(id))
	return mu, nil
}

// Close releases the underlying file.
func (r *MutationFileReader) Close() error {
	return r.f.Close()
}
