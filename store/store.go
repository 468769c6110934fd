// Package store persists score documents as binary snapshot files.
//
// Layout: a little-endian header (magic, format version, gob payload
// size) followed by the gob-encoded document.
package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jsphweid/tactus/model"
	"github.com/jsphweid/tactus/repeats"
	"github.com/jsphweid/tactus/timeline"
)

const (
	magic   uint32 = 0x54414354 // "TACT"
	version uint32 = 1
)

var ErrBadFormat = errors.New("store: not a score snapshot")

// Document is the serializable form of a score: the timeline flattened
// to plain model values plus the tempo map.
type Document struct {
	Metadata    model.ScoreMetadata
	Measures    []model.Measure
	Spanners    []model.Spanner
	TempoEvents []repeats.TempoEvent
}

// Snapshot flattens a live timeline into a Document.
func Snapshot(tl *timeline.Timeline, tm repeats.TempoMap, meta model.ScoreMetadata) *Document {
	doc := &Document{Metadata: meta, TempoEvents: tm.Events}
	for _, m := range tl.Measures {
		doc.Measures = append(doc.Measures, *m.Copy())
	}
	for _, s := range tl.Spanners.All() {
		doc.Spanners = append(doc.Spanners, *s.Copy())
	}
	return doc
}

// Materialize rebuilds a live timeline from the document and verifies
// the spanner invariants before handing it back.
func (d *Document) Materialize() (*timeline.Timeline, repeats.TempoMap, error) {
	tl := timeline.New()
	for i := range d.Measures {
		tl.Measures = append(tl.Measures, d.Measures[i].Copy())
	}
	for _, s := range d.Spanners {
		tl.Spanners.Put(s)
	}
	if err := tl.VerifySpanners(); err != nil {
		return nil, repeats.TempoMap{}, fmt.Errorf("store: snapshot is corrupt... %w", err)
	}
	return tl, repeats.NewTempoMap(d.TempoEvents), nil
}

func Save(filename string, doc *Document) error {
	buf := new(bytes.Buffer)
	if err := gob.NewEncoder(buf).Encode(doc); err != nil {
		return fmt.Errorf("store: couldn't encode document... %w", err)
	}

	header := new(bytes.Buffer)
	binary.Write(header, binary.LittleEndian, magic)
	binary.Write(header, binary.LittleEndian, version)
	binary.Write(header, binary.LittleEndian, uint32(buf.Len()))

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("store: couldn't open file %v... %w", filename, err)
	}
	defer f.Close()

	if _, err := f.Write(header.Bytes()); err != nil {
		return fmt.Errorf("store: write failed for %v... %w", filename, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("store: write failed for %v... %w", filename, err)
	}
	return nil
}

func Load(filename string) (*Document, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("store: couldn't read file %v... %w", filename, err)
	}
	defer f.Close()

	var m, v, size uint32
	if err := binary.Read(f, binary.LittleEndian, &m); err != nil {
		return nil, ErrBadFormat
	}
	if m != magic {
		return nil, ErrBadFormat
	}
	if err := binary.Read(f, binary.LittleEndian, &v); err != nil || v != version {
		return nil, fmt.Errorf("store: unsupported snapshot version %v", v)
	}
	if err := binary.Read(f, binary.LittleEndian, &size); err != nil {
		return nil, ErrBadFormat
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(f, payload); err != nil {
		return nil, fmt.Errorf("store: truncated snapshot... %w", err)
	}

	var doc Document
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("store: couldn't decode snapshot... %w", err)
	}
	return &doc, nil
}
