// internal/core/usecases/mocks_test.go
package usecases

import (
	"context"
	"strings"
	"sync"

	"corpusx/internal/core/domain"
	"corpusx/internal/core/ports"
)

// journal registra las invocaciones de las etapas en orden, para poder
// verificar la secuencia por descriptor.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) record(stage, id string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, stage+":"+id)
}

// forDescriptor devuelve las etapas invocadas para un descriptor, en orden.
func (j *journal) forDescriptor(id string) []string {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []string
	for _, e := range j.entries {
		if strings.HasSuffix(e, ":"+id) {
			out = append(out, strings.TrimSuffix(e, ":"+id))
		}
	}
	return out
}

type fakeFetcher struct {
	journal *journal
	errs    map[string]error
	size    int64
}

func (f *fakeFetcher) Supports(string) bool { return true }

func (f *fakeFetcher) Fetch(ctx context.Context, desc domain.Resolved, progress ports.ProgressFunc) (domain.FetchResult, error) {
	f.journal.record("fetch", desc.ID)
	if err := f.errs[desc.ID]; err != nil {
		return domain.FetchResult{}, err
	}
	size := f.size
	if size == 0 {
		size = 1024
	}
	if progress != nil {
		progress(size, size)
	}
	return domain.FetchResult{LocalPath: desc.ArchivePath, ByteSize: size}, nil
}

type fakeExtractor struct {
	journal *journal
	errs    map[string]error
}

func (f *fakeExtractor) Extract(ctx context.Context, desc domain.Resolved) (string, error) {
	f.journal.record("extract", desc.ID)
	if err := f.errs[desc.ID]; err != nil {
		return "", err
	}
	return desc.ExtractedPath, nil
}

type fakeRelocator struct {
	journal *journal
	errs    map[string]error

	mu     sync.Mutex
	forced map[string]bool
}

func (f *fakeRelocator) Relocate(ctx context.Context, desc domain.Resolved, force bool) error {
	f.journal.record("relocate", desc.ID)
	f.mu.Lock()
	if f.forced == nil {
		f.forced = make(map[string]bool)
	}
	f.forced[desc.ID] = force
	f.mu.Unlock()
	return f.errs[desc.ID]
}

// memStore es un StateStore en memoria con inyección de errores de Load.
type memStore struct {
	mu       sync.Mutex
	records  map[string]domain.State
	loadErrs map[string]error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]domain.State)}
}

func (s *memStore) Load(id string) (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadErrs[id]; err != nil {
		return domain.State{}, err
	}
	if st, ok := s.records[id]; ok {
		return st, nil
	}
	return domain.NewState(id), nil
}

func (s *memStore) Save(st domain.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[st.DescriptorID] = st
	return nil
}

func (s *memStore) Reset(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// stage devuelve la etapa persistida de un descriptor.
func (s *memStore) stage(id string) domain.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.records[id]; ok {
		return st.Stage
	}
	return domain.StageNotStarted
}

// harness agrupa los fakes de una prueba del orchestrator.
type harness struct {
	journal   *journal
	fetcher   *fakeFetcher
	extractor *fakeExtractor
	relocator *fakeRelocator
	store     *memStore
}

func newHarness() *harness {
	j := &journal{}
	return &harness{
		journal:   j,
		fetcher:   &fakeFetcher{journal: j, errs: map[string]error{}},
		extractor: &fakeExtractor{journal: j, errs: map[string]error{}},
		relocator: &fakeRelocator{journal: j, errs: map[string]error{}},
		store:     newMemStore(),
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Fetcher:   h.fetcher,
		Extractor: h.extractor,
		Relocator: h.relocator,
		States:    h.store,
	}
}
