package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/recollect/core"
)

// Key prefixes for different data types
const (
	episodePrefix       = "epi:"
	episodeTimePrefix   = "epit:"
	entityPrefix        = "ent:"
	entityNsPrefix      = "entn:"
	factPrefix          = "fct:"
	factNsPrefix        = "fctn:"
	factEntityPrefix    = "fcte:"
	namespaceStatPrefix = "nsst:"
)

// secondaryPrefixes lists every index that can be regenerated from primary records.
var secondaryPrefixes = [][]byte{
	[]byte(episodeTimePrefix),
	[]byte(entityNsPrefix),
	[]byte(factNsPrefix),
	[]byte(factEntityPrefix),
}

func idKey(prefix string, id core.ID) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

func makeEpisodeKey(id core.ID) []byte { return idKey(episodePrefix, id) }
func makeEntityKey(id core.ID) []byte  { return idKey(entityPrefix, id) }
func makeFactKey(id core.ID) []byte    { return idKey(factPrefix, id) }

// namespacePrefix builds prefix + namespace + NUL. Namespaces never contain NUL.
func namespacePrefix(prefix, namespace string) []byte {
	buf := make([]byte, 0, len(prefix)+len(namespace)+1)
	buf = append(buf, prefix...)
	buf = append(buf, namespace...)
	return append(buf, 0)
}

// makeEpisodeTimeKey generates a composite key for the per-namespace time index.
// Format: prefix namespace NUL timestamp id
func makeEpisodeTimeKey(namespace string, ts time.Time, id core.ID) []byte {
	buf := namespacePrefix(episodeTimePrefix, namespace)
	// BigEndian keeps lexicographic order equal to time order
	buf = binary.BigEndian.AppendUint64(buf, uint64(ts.UnixMicro()))
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

func makeEntityNsKey(namespace string, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(namespacePrefix(entityNsPrefix, namespace), uint64(id))
}

func makeFactNsKey(namespace string, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(namespacePrefix(factNsPrefix, namespace), uint64(id))
}

// makeFactEntityKey indexes a fact under one of its endpoints.
// Format: prefix entityID factID
func makeFactEntityKey(entityID, factID core.ID) []byte {
	buf := idKey(factEntityPrefix, entityID)
	return binary.BigEndian.AppendUint64(buf, uint64(factID))
}

func makeNamespaceStatKey(namespace string) []byte {
	return []byte(namespaceStatPrefix + namespace)
}
