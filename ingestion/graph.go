package ingestion

import (
	"maps"
	"strings"

	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/core"
)

// graphBuilder collects the entities and facts of one episode, merging
// repeated mentions by name.
type graphBuilder struct {
	namespace string
	episodeID core.ID
	byName    map[string]*core.Entity
	entities  []*core.Entity
	factIDs   map[core.ID]bool
	facts     []*core.Fact
}

func newGraphBuilder(namespace string, episodeID core.ID) *graphBuilder {
	return &graphBuilder{
		namespace: namespace,
		episodeID: episodeID,
		byName:    make(map[string]*core.Entity),
		factIDs:   make(map[core.ID]bool),
	}
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// addEntity adds an entity mention. The first mention of a name fixes its
// type; later mentions only fill in what is still missing.
func (b *graphBuilder) addEntity(name, typ, summary string, attrs map[string]string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if typ == "" {
		typ = ai.GenericEntityType
	}
	key := nameKey(name)
	if e, ok := b.byName[key]; ok {
		if e.Summary == "" {
			e.Summary = summary
		}
		for k, v := range attrs {
			if _, exists := e.Attributes[k]; !exists {
				e.Attributes[k] = v
			}
		}
		return
	}

	labels := []string{ai.GenericEntityType}
	if typ != ai.GenericEntityType {
		labels = append(labels, typ)
	}
	uuid := core.EntityUUID(b.namespace, typ, name)
	e := &core.Entity{
		Id:         core.IDFromUUID(uuid),
		UUID:       uuid,
		Name:       name,
		Namespace:  b.namespace,
		Labels:     labels,
		Summary:    summary,
		Attributes: maps.Clone(attrs),
		EpisodeIds: []core.ID{b.episodeID},
	}
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	b.byName[key] = e
	b.entities = append(b.entities, e)
}

// addFact relates two previously added entities. Facts naming an unknown
// entity are dropped.
func (b *graphBuilder) addFact(source, target, relation, statement string) bool {
	src, ok := b.byName[nameKey(source)]
	if !ok {
		return false
	}
	dst, ok := b.byName[nameKey(target)]
	if !ok {
		return false
	}
	relation = strings.ToUpper(strings.TrimSpace(relation))
	if relation == "" {
		return false
	}
	uuid := core.FactUUID(b.namespace, src.Id, relation, dst.Id)
	id := core.IDFromUUID(uuid)
	if b.factIDs[id] {
		return false
	}
	b.factIDs[id] = true
	b.facts = append(b.facts, &core.Fact{
		Id:         id,
		UUID:       uuid,
		Namespace:  b.namespace,
		Relation:   relation,
		Fact:       statement,
		SourceId:   src.Id,
		TargetId:   dst.Id,
		EpisodeIds: []core.ID{b.episodeID},
	})
	return true
}

// buildGraph combines declared and extracted entities into store records.
// Declared entities come first so their types win.
func buildGraph(namespace string, episodeID core.ID, declared []declaredEntity, extraction *ai.Extraction) ([]*core.Entity, []*core.Fact) {
	b := newGraphBuilder(namespace, episodeID)
	for _, d := range declared {
		b.addEntity(d.Name, d.Type, "", d.Attributes)
	}
	if extraction != nil {
		for _, e := range extraction.Entities {
			b.addEntity(e.Name, e.Type, e.Summary, e.Attributes)
		}
		for _, f := range extraction.Facts {
			b.addFact(f.Source, f.Target, f.Relation, f.Fact)
		}
	}
	return b.entities, b.facts
}
