package segment

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

// Reader serves a segment file as an index.Store. The dictionary and the
// document table are held in memory; posting blocks are read on demand
// with ReadAt, so a Reader is safe for concurrent use.
type Reader struct {
	file        *os.File
	filePath    string
	header      SegmentHeader
	dict        []DictEntry
	docs        []index.DocEntry
	fieldTotals map[string]int64
	fieldDocs   map[string]int
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening segment file: %w", apperrors.ErrIndexAccess, err)
	}
	r, err := load(f, path)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %w", apperrors.ErrIndexAccess, path, err)
	}
	return r, nil
}

func load(f *os.File, path string) (*Reader, error) {
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	magic := binary.LittleEndian.Uint32(headerBytes[0:4])
	if magic != MagicBytes {
		return nil, fmt.Errorf("invalid segment file: bad magic bytes %x", magic)
	}
	header := SegmentHeader{
		Magic:      magic,
		Version:    binary.LittleEndian.Uint32(headerBytes[4:8]),
		TermCount:  binary.LittleEndian.Uint32(headerBytes[8:12]),
		DocCount:   binary.LittleEndian.Uint32(headerBytes[12:16]),
		DictOffset: int64(binary.LittleEndian.Uint64(headerBytes[16:24])),
		DictSize:   int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
		PostOffset: int64(binary.LittleEndian.Uint64(headerBytes[32:40])),
		PostSize:   int64(binary.LittleEndian.Uint64(headerBytes[40:48])),
		DocsOffset: int64(binary.LittleEndian.Uint64(headerBytes[48:56])),
		DocsSize:   int64(binary.LittleEndian.Uint64(headerBytes[56:64])),
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported segment version %d", header.Version)
	}

	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	docsBytes := make([]byte, header.DocsSize)
	if _, err := f.ReadAt(docsBytes, header.DocsOffset); err != nil {
		return nil, fmt.Errorf("reading document table: %w", err)
	}
	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, header.DocsOffset+header.DocsSize); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	crc := crc32.NewIEEE()
	crc.Write(dictBytes)
	crc.Write(docsBytes)
	if want := binary.LittleEndian.Uint32(footer[0:4]); crc.Sum32() != want {
		return nil, fmt.Errorf("checksum mismatch: got %08x, want %08x", crc.Sum32(), want)
	}

	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	var docs []index.DocEntry
	if err := json.Unmarshal(docsBytes, &docs); err != nil {
		return nil, fmt.Errorf("parsing document table: %w", err)
	}

	r := &Reader{
		file:        f,
		filePath:    path,
		header:      header,
		dict:        dict,
		docs:        docs,
		fieldTotals: make(map[string]int64),
		fieldDocs:   make(map[string]int),
	}
	for _, d := range docs {
		for field, n := range d.Lengths {
			if n > 0 {
				r.fieldTotals[field] += int64(n)
				r.fieldDocs[field]++
			}
		}
	}
	return r, nil
}

func (r *Reader) FetchPostings(_ context.Context, term, field string) (*index.InvertedList, error) {
	i := sort.Search(len(r.dict), func(i int) bool {
		return !r.dict[i].less(field, term)
	})
	if i >= len(r.dict) || r.dict[i].Field != field || r.dict[i].Term != term {
		return index.NewInvertedList(field), nil
	}
	entry := r.dict[i]
	block := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(block, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("%w: reading postings for %s.%s: %w", apperrors.ErrIndexAccess, term, field, err)
	}
	var postings []index.Posting
	if err := cbor.Unmarshal(block, &postings); err != nil {
		return nil, fmt.Errorf("%w: decoding postings for %s.%s: %w", apperrors.ErrIndexAccess, term, field, err)
	}
	return &index.InvertedList{
		Field:    field,
		DF:       entry.DocFreq,
		CTF:      entry.CTF,
		Postings: postings,
	}, nil
}

func (r *Reader) FieldTotalLength(_ context.Context, field string) (int64, error) {
	return r.fieldTotals[field], nil
}

func (r *Reader) FieldAverageDocLength(_ context.Context, field string) (float64, error) {
	if r.fieldDocs[field] == 0 {
		return 0, nil
	}
	return float64(r.fieldTotals[field]) / float64(r.fieldDocs[field]), nil
}

func (r *Reader) TotalDocumentCount(_ context.Context) (int, error) {
	return len(r.docs), nil
}

func (r *Reader) DocumentLength(_ context.Context, field string, docID int) (int, error) {
	if docID < 0 || docID >= len(r.docs) {
		return 0, fmt.Errorf("%w: document length: %w %d", apperrors.ErrIndexAccess, apperrors.ErrDocumentNotFound, docID)
	}
	return r.docs[docID].Lengths[field], nil
}

func (r *Reader) ExternalID(_ context.Context, docID int) (string, error) {
	if docID < 0 || docID >= len(r.docs) {
		return "", fmt.Errorf("%w: external id: %w %d", apperrors.ErrIndexAccess, apperrors.ErrDocumentNotFound, docID)
	}
	return r.docs[docID].ExternalID, nil
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Path() string {
	return r.filePath
}

func (r *Reader) Close() error {
	return r.file.Close()
}
