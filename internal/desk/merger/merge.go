// Package merger fetches the three record collections, normalizes and
// decrypts them, and publishes the unified list into the snapshot store.
package merger

import (
	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
)

// Decrypter turns stored signature ciphertext back into an image data URL.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Merge concatenates batches in visitor, guest, adhoc order. Records hidden
// with removedFromUI are dropped. A signature that fails to decrypt leaves
// DisplaySignature empty. The second return value counts such failures.
func Merge(batches map[models.Source][]models.RawRecord, dec Decrypter) ([]models.VisitRecord, int) {
	n := 0
	for _, b := range batches {
		n += len(b)
	}

	out := make([]models.VisitRecord, 0, n)
	failed := 0

	for _, src := range models.Sources {
		for _, raw := range batches[src] {
			if raw.RemovedFromUI {
				continue
			}
			rec := raw.Normalize(src)
			if rec.Signature != "" && dec != nil {
				plain, err := dec.Decrypt(rec.Signature)
				if err != nil {
					failed++
				} else {
					rec.DisplaySignature = plain
				}
			}
			out = append(out, rec)
		}
	}
	return out, failed
}
