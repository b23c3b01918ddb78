package chronicle

import (
	"bufio"
	"fmt"
	"os"

	"github.com/mrabchevskiy/chronicle/codec"
)

// Load status codes; positive and strongly negative values carry the
// offending identity (see Load).
const (
	LoadOK         = 0
	LoadOpenFailed = -1
	LoadBadRecord  = -2
)

// Save writes the live identity sequence, one encoded identity per line,
// oldest first. Holes are skipped: the file carries the sequence, not
// the buffer geometry, so a saved chronicle loads back without an
// intervening Compact. Patterns and the occurrence index are not saved;
// they are reproduced by re-inclusion and by the external storage.
func (me *Chronicle) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("chronicle: save: %w", err)
	}
	w := bufio.NewWriter(f)
	buf := make([]byte, 0, 8)
	me.seq.process(func(_ int, s *Slot) bool {
		if s.ID == Nihil {
			return true
		}
		buf = codec.Append(buf[:0], uint32(s.ID))
		w.Write(buf)
		w.WriteByte('\n')
		return true
	})
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("chronicle: save: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("chronicle: save: %w", err)
	}
	return nil
}

// Load reads an encoded identity sequence from path and feeds it through
// Incl, extending the current content. Call Reset first to replace it.
//
// The whole file is decoded and checked against exists before any
// inclusion, so a rejected file leaves the chronicle untouched. Returns:
//
//	 0        success
//	-1        the file could not be opened
//	-2        a record decoded to Nihil or was not decodable
//	+id       the file holds an identity unknown to exists
//	-id       Incl(id) returned false; the chronicle keeps the
//	          identities included so far
func (me *Chronicle) Load(path string, exists func(Identity) bool) int {
	f, err := os.Open(path)
	if err != nil {
		return LoadOpenFailed
	}
	defer f.Close()

	r := codec.NewReader(f)
	var sequence []Identity
	for {
		u, ok, err := r.Next()
		if err != nil {
			return LoadBadRecord
		}
		if !ok {
			break
		}
		if u == uint32(Nihil) {
			return LoadBadRecord
		}
		id := Identity(u)
		if exists != nil && !exists(id) {
			return int(id)
		}
		sequence = append(sequence, id)
	}
	for _, id := range sequence {
		if !me.Incl(id) {
			return -int(id)
		}
	}
	return LoadOK
}
