// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/recollect/core"
)

// Record layout versions. Bump when a record's field order changes.
const (
	episodeVersion uint64 = 1
	entityVersion  uint64 = 1
	factVersion    uint64 = 1
	statsVersion   uint64 = 1
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: id: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

// MarshalEpisode serializes an Episode to bytes.
func MarshalEpisode(ep *core.Episode) []byte {
	var w writer
	w.uint(episodeVersion)
	w.uint(uint64(ep.Id))
	w.str(ep.UUID)
	w.str(ep.Name)
	w.str(ep.Namespace)
	w.str(ep.Content)
	w.uint(uint64(ep.Format))
	w.str(ep.SourceDescription)
	w.time(ep.ReferenceTime)
	w.time(ep.InsertedAt)
	w.vector(ep.Vector)
	return w.bs
}

// UnmarshalEpisode deserializes an Episode from bytes.
func UnmarshalEpisode(data []byte) (*core.Episode, error) {
	r := reader{bs: data}
	if v := r.uint(); r.err == nil && v != episodeVersion {
		return nil, fmt.Errorf("%w: unknown episode version %d", ErrSerializationFailed, v)
	}
	ep := &core.Episode{
		Id:                core.ID(r.uint()),
		UUID:              r.str(),
		Name:              r.str(),
		Namespace:         r.str(),
		Content:           r.str(),
		Format:            core.EpisodeFormat(r.uint()),
		SourceDescription: r.str(),
		ReferenceTime:     r.time(),
		InsertedAt:        r.time(),
		Vector:            r.vector(),
	}
	if err := r.done("episode"); err != nil {
		return nil, err
	}
	return ep, nil
}

// MarshalEntity serializes an Entity to bytes.
func MarshalEntity(e *core.Entity) []byte {
	var w writer
	w.uint(entityVersion)
	w.uint(uint64(e.Id))
	w.str(e.UUID)
	w.str(e.Name)
	w.str(e.Namespace)
	w.strs(e.Labels)
	w.str(e.Summary)
	w.attrs(e.Attributes)
	w.ids(e.EpisodeIds)
	w.vector(e.Vector)
	w.time(e.InsertedAt)
	w.time(e.UpdatedAt)
	return w.bs
}

// UnmarshalEntity deserializes an Entity from bytes.
func UnmarshalEntity(data []byte) (*core.Entity, error) {
	r := reader{bs: data}
	if v := r.uint(); r.err == nil && v != entityVersion {
		return nil, fmt.Errorf("%w: unknown entity version %d", ErrSerializationFailed, v)
	}
	e := &core.Entity{
		Id:         core.ID(r.uint()),
		UUID:       r.str(),
		Name:       r.str(),
		Namespace:  r.str(),
		Labels:     r.strs(),
		Summary:    r.str(),
		Attributes: r.attrs(),
		EpisodeIds: r.ids(),
		Vector:     r.vector(),
		InsertedAt: r.time(),
		UpdatedAt:  r.time(),
	}
	if err := r.done("entity"); err != nil {
		return nil, err
	}
	return e, nil
}

// MarshalFact serializes a Fact to bytes.
func MarshalFact(f *core.Fact) []byte {
	var w writer
	w.uint(factVersion)
	w.uint(uint64(f.Id))
	w.str(f.UUID)
	w.str(f.Namespace)
	w.str(f.Relation)
	w.str(f.Fact)
	w.uint(uint64(f.SourceId))
	w.uint(uint64(f.TargetId))
	w.ids(f.EpisodeIds)
	w.vector(f.Vector)
	w.time(f.ValidAt)
	w.time(f.InsertedAt)
	w.time(f.UpdatedAt)
	return w.bs
}

// UnmarshalFact deserializes a Fact from bytes.
func UnmarshalFact(data []byte) (*core.Fact, error) {
	r := reader{bs: data}
	if v := r.uint(); r.err == nil && v != factVersion {
		return nil, fmt.Errorf("%w: unknown fact version %d", ErrSerializationFailed, v)
	}
	f := &core.Fact{
		Id:         core.ID(r.uint()),
		UUID:       r.str(),
		Namespace:  r.str(),
		Relation:   r.str(),
		Fact:       r.str(),
		SourceId:   core.ID(r.uint()),
		TargetId:   core.ID(r.uint()),
		EpisodeIds: r.ids(),
		Vector:     r.vector(),
		ValidAt:    r.time(),
		InsertedAt: r.time(),
		UpdatedAt:  r.time(),
	}
	if err := r.done("fact"); err != nil {
		return nil, err
	}
	return f, nil
}

// MarshalNamespaceStats serializes NamespaceStats to bytes.
func MarshalNamespaceStats(s *core.NamespaceStats) []byte {
	var w writer
	w.uint(statsVersion)
	w.str(s.Namespace)
	w.uint(s.EpisodeCount)
	w.time(s.LastIngestAt)
	return w.bs
}

// UnmarshalNamespaceStats deserializes NamespaceStats from bytes.
func UnmarshalNamespaceStats(data []byte) (*core.NamespaceStats, error) {
	r := reader{bs: data}
	if v := r.uint(); r.err == nil && v != statsVersion {
		return nil, fmt.Errorf("%w: unknown stats version %d", ErrSerializationFailed, v)
	}
	s := &core.NamespaceStats{
		Namespace:    r.str(),
		EpisodeCount: r.uint(),
		LastIngestAt: r.time(),
	}
	if err := r.done("namespace stats"); err != nil {
		return nil, err
	}
	return s, nil
}

// writer appends mus-encoded primitives to a growing buffer.
type writer struct {
	bs []byte
}

func (w *writer) reserve(n int) []byte {
	w.bs = slices.Grow(w.bs, n)
	start := len(w.bs)
	w.bs = w.bs[:start+n]
	return w.bs[start:]
}

func (w *writer) uint(v uint64) {
	varint.Uint64.Marshal(v, w.reserve(varint.Uint64.Size(v)))
}

func (w *writer) int(v int64) {
	varint.Int64.Marshal(v, w.reserve(varint.Int64.Size(v)))
}

func (w *writer) str(v string) {
	ord.String.Marshal(v, w.reserve(ord.String.Size(v)))
}

func (w *writer) time(t time.Time) {
	w.int(t.UnixMicro())
}

func (w *writer) strs(vs []string) {
	w.uint(uint64(len(vs)))
	for _, v := range vs {
		w.str(v)
	}
}

// attrs writes keys in sorted order so equal maps encode identically.
func (w *writer) attrs(m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	w.uint(uint64(len(keys)))
	for _, k := range keys {
		w.str(k)
		w.str(m[k])
	}
}

func (w *writer) ids(ids []core.ID) {
	w.uint(uint64(len(ids)))
	for _, id := range ids {
		w.uint(uint64(id))
	}
}

func (w *writer) vector(v []float32) {
	w.uint(uint64(len(v)))
	for _, f := range v {
		bits := math.Float32bits(f)
		varint.Uint32.Marshal(bits, w.reserve(varint.Uint32.Size(bits)))
	}
}

// reader consumes mus-encoded primitives. The first failure sticks and
// every later read returns a zero value.
type reader struct {
	bs  []byte
	err error
}

func (r *reader) uint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.bs)
	if err != nil {
		r.err = err
		return 0
	}
	r.bs = r.bs[n:]
	return v
}

func (r *reader) int() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.bs)
	if err != nil {
		r.err = err
		return 0
	}
	r.bs = r.bs[n:]
	return v
}

func (r *reader) str() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs)
	if err != nil {
		r.err = err
		return ""
	}
	r.bs = r.bs[n:]
	return v
}

func (r *reader) time() time.Time {
	v := r.int()
	if r.err != nil {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

// count reads a collection length and rejects lengths the remaining
// buffer cannot possibly hold.
func (r *reader) count() int {
	n := r.uint()
	if r.err == nil && n > uint64(len(r.bs)) {
		r.err = ErrTruncatedData
		return 0
	}
	return int(n)
}

func (r *reader) strs() []string {
	n := r.count()
	if n == 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, r.str())
	}
	return out
}

func (r *reader) attrs() map[string]string {
	n := r.count()
	if n == 0 {
		return nil
	}
	out := make(map[string]string, n)
	for i := 0; i < n && r.err == nil; i++ {
		k := r.str()
		out[k] = r.str()
	}
	return out
}

func (r *reader) ids() []core.ID {
	n := r.count()
	if n == 0 {
		return nil
	}
	out := make([]core.ID, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, core.ID(r.uint()))
	}
	return out
}

func (r *reader) vector() []float32 {
	n := r.count()
	if n == 0 {
		return nil
	}
	out := make([]float32, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		bits, read, err := varint.Uint32.Unmarshal(r.bs)
		if err != nil {
			r.err = err
			break
		}
		r.bs = r.bs[read:]
		out = append(out, math.Float32frombits(bits))
	}
	return out
}

func (r *reader) done(what string) error {
	if r.err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSerializationFailed, what, r.err)
	}
	return nil
}
