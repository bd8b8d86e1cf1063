package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
)

// MagicBytes identifies a valid .spdx segment file.
const (
	MagicBytes    uint32 = 0x53504458
	FormatVersion uint32 = 2
	HeaderSize    int    = 64
	FooterSize    int    = 16
)

// SegmentHeader is the 64-byte header written at the start of every segment.
type SegmentHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	DictOffset int64
	DictSize   int64
	PostOffset int64
	PostSize   int64
	DocsOffset int64
	DocsSize   int64
}

// DictEntry locates one (field, term) posting block and carries its
// collection statistics.
type DictEntry struct {
	Field      string `json:"f"`
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
	CTF        int    `json:"c"`
}

func (e DictEntry) less(field, term string) bool {
	if e.Field != field {
		return e.Field < field
	}
	return e.Term < term
}

// Write atomically creates a segment file at path holding the snapshot.
// Posting blocks are CBOR-encoded; the dictionary and document table are
// JSON. It writes to a .tmp file first and renames on success.
func Write(path string, snap index.Snapshot) error {
	if len(snap.Docs) == 0 {
		return fmt.Errorf("cannot write empty segment")
	}
	tmpPath := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating segment directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp segment file: %w", err)
	}
	defer f.Close()

	headerBytes := make([]byte, HeaderSize)
	if _, err := f.Write(headerBytes); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	postingsStart := int64(HeaderSize)
	offset := postingsStart
	dict := make([]DictEntry, 0, len(snap.Terms))
	for _, entry := range snap.Terms {
		block, err := cbor.Marshal(entry.Postings)
		if err != nil {
			return fmt.Errorf("encoding postings for %s.%s: %w", entry.Term, entry.Field, err)
		}
		if _, err := f.Write(block); err != nil {
			return fmt.Errorf("writing postings for %s.%s: %w", entry.Term, entry.Field, err)
		}
		dict = append(dict, DictEntry{
			Field:      entry.Field,
			Term:       entry.Term,
			PostOffset: offset - postingsStart,
			PostLen:    len(block),
			DocFreq:    len(entry.Postings),
			CTF:        entry.CTF,
		})
		offset += int64(len(block))
	}

	sort.Slice(dict, func(i, j int) bool {
		return dict[i].less(dict[j].Field, dict[j].Term)
	})
	dictData, err := json.Marshal(dict)
	if err != nil {
		return fmt.Errorf("marshaling dictionary: %w", err)
	}
	docsData, err := json.Marshal(snap.Docs)
	if err != nil {
		return fmt.Errorf("marshaling document table: %w", err)
	}
	dictStart := offset
	if _, err := f.Write(dictData); err != nil {
		return fmt.Errorf("writing dictionary: %w", err)
	}
	docsStart := dictStart + int64(len(dictData))
	if _, err := f.Write(docsData); err != nil {
		return fmt.Errorf("writing document table: %w", err)
	}

	crc := crc32.NewIEEE()
	crc.Write(dictData)
	crc.Write(docsData)
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc.Sum32())
	binary.LittleEndian.PutUint32(footer[4:8], uint32(len(snap.Docs)))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(time.Now().Unix()))
	if _, err := f.Write(footer); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}

	binary.LittleEndian.PutUint32(headerBytes[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(headerBytes[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(headerBytes[8:12], uint32(len(dict)))
	binary.LittleEndian.PutUint32(headerBytes[12:16], uint32(len(snap.Docs)))
	binary.LittleEndian.PutUint64(headerBytes[16:24], uint64(dictStart))
	binary.LittleEndian.PutUint64(headerBytes[24:32], uint64(len(dictData)))
	binary.LittleEndian.PutUint64(headerBytes[32:40], uint64(postingsStart))
	binary.LittleEndian.PutUint64(headerBytes[40:48], uint64(dictStart-postingsStart))
	binary.LittleEndian.PutUint64(headerBytes[48:56], uint64(docsStart))
	binary.LittleEndian.PutUint64(headerBytes[56:64], uint64(len(docsData)))
	if _, err := f.WriteAt(headerBytes, 0); err != nil {
		return fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing segment file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming segment file: %w", err)
	}
	return nil
}
