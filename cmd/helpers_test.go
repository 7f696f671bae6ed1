package cmd

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"jmute.dev/pkg/jmute/internal/bytecode"
	"jmute.dev/pkg/jmute/internal/controller"
	m "jmute.dev/pkg/jmute/internal/model"
)

// stubUI records what a command asked to display.
type stubUI struct {
	mutations []m.Mutation
	rows      []controller.Row
	counts    []controller.ClassCount
	reports   []m.ClassReport
}

func (u *stubUI) ShowMutations(muts []m.Mutation) error {
	u.mutations = muts
	return nil
}

func (u *stubUI) ShowTable(rows []controller.Row) error {
	u.rows = rows
	return nil
}

func (u *stubUI) ShowCounts(_ string, counts []controller.ClassCount) error {
	u.counts = counts
	return nil
}

func (u *stubUI) ShowReports(reports []m.ClassReport) error {
	u.reports = reports
	return nil
}

// swapUI replaces the shared UI with a recording stub for one test.
func swapUI(t *testing.T) *stubUI {
	t.Helper()
	stub := &stubUI{}
	original := ui
	ui = stub
	t.Cleanup(func() { ui = original })
	return stub
}

// redirectLog keeps command tests from writing the log file into the
// working directory.
func redirectLog(t *testing.T) {
	t.Helper()
	original := viper.GetString(logFilenameKey)
	viper.Set(logFilenameKey, filepath.Join(t.TempDir(), "jmute.log"))
	t.Cleanup(func() { viper.Set(logFilenameKey, original) })
}

func newTestRoot(t *testing.T, sub *cobra.Command) *cobra.Command {
	t.Helper()
	redirectLog(t)
	root := baseRootCmd()
	root.AddCommand(sub)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root
}

type classBuf struct{ buf []byte }

func (w *classBuf) u8(v byte)    { w.buf = append(w.buf, v) }
func (w *classBuf) u16(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }
func (w *classBuf) u32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *classBuf) raw(b []byte) { w.buf = append(w.buf, b...) }
func (w *classBuf) utf8(s string) {
	w.u8(1)
	w.u16(uint16(len(s)))
	w.raw([]byte(s))
}

// fixtureClassBytes builds a class with one method whose body holds an
// iadd and an isub, enough for the arithmetic operator to find work.
func fixtureClassBytes() []byte {
	w := &classBuf{}
	w.u32(0xCAFEBABE)
	w.u16(0)
	w.u16(52)

	w.u16(8)
	w.utf8("mutation/Target") // 1
	w.u8(7)
	w.u16(1) // 2: this class
	w.utf8("java/lang/Object") // 3
	w.u8(7)
	w.u16(3) // 4: super class
	w.utf8("Code")  // 5
	w.utf8("calc")  // 6
	w.utf8("(II)I") // 7

	w.u16(bytecode.AccPublic)
	w.u16(2)
	w.u16(4)
	w.u16(0)
	w.u16(0)

	code := []byte{
		bytecode.ILOAD_0, bytecode.ILOAD_1, bytecode.IADD,
		bytecode.ILOAD_0, bytecode.ISUB, bytecode.IRETURN,
	}
	w.u16(1)
	w.u16(bytecode.AccPublic)
	w.u16(6)
	w.u16(7)
	w.u16(1)
	w.u16(5)
	cw := &classBuf{}
	cw.u16(4)
	cw.u16(3)
	cw.u32(uint32(len(code)))
	cw.raw(code)
	cw.u16(0)
	cw.u16(0)
	w.u32(uint32(len(cw.buf)))
	w.raw(cw.buf)

	w.u16(0)
	return w.buf
}

func writeFixtureClass(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, fixtureClassBytes(), 0o644))
	return path
}
