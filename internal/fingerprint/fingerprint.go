// Package fingerprint derives the deterministic 64-bit identity of a
// transaction. The fingerprint is the join key between raw transactions and
// tag entries: rows identical in all five natural-key fields collapse to the
// same fingerprint on purpose, so a recurring identical charge is tagged once.
// It is not a dedup key and not guaranteed collision-free across genuinely
// distinct rows.
package fingerprint

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/ledgerline/ledgerline/internal/model"
)

// Transaction hashes the ordered natural-key tuple
// (account, source, date, description, amount). Each field is framed by its
// byte length so ("ab","c") can never collide with ("a","bc"). The encoding
// is fixed, so fingerprints are stable across runs and platforms.
func Transaction(tx model.Transaction) uint64 {
	d := xxhash.New()
	writeField(d, tx.Account)
	writeField(d, tx.Source)
	writeField(d, tx.Date.Format(model.DateFormat))
	writeField(d, tx.Description)
	writeField(d, tx.Amount.StringFixed(2))
	return d.Sum64()
}

func writeField(d *xxhash.Digest, field string) {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(field)))
	_, _ = d.Write(lenBuf[:])
	_, _ = d.WriteString(field)
}
