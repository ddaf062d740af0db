package revdom

import (
	"sync"

	"github.com/gorilla/websocket"
)

// TemplateCache is the §5 "template source cache": an immutable keyed store
// mapping a template path to its resolved canonical source. Safe for
// concurrent use. An entry is stored the first time its path is resolved
// (which may happen during a render) and is dropped only by an explicit
// Reload (e.g. in response to a template-file change notification).
type TemplateCache struct {
	mu      sync.RWMutex
	byPath  map[string]string
	loader  TemplateLoader
	resolve *Resolver
}

// NewTemplateCache builds a cache that resolves misses through loader.
func NewTemplateCache(loader TemplateLoader) *TemplateCache {
	return &TemplateCache{
		byPath:  make(map[string]string),
		loader:  loader,
		resolve: NewResolver(loader),
	}
}

// Resolved returns path's canonical source, resolving and caching it on
// first access.
func (c *TemplateCache) Resolved(path string) (string, error) {
	c.mu.RLock()
	src, ok := c.byPath[path]
	c.mu.RUnlock()
	if ok {
		return src, nil
	}

	src, err := c.resolve.Resolve(path)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.byPath[path] = src
	c.mu.Unlock()
	return src, nil
}

// Reload forces path (and only path) to be re-resolved on its next access.
func (c *TemplateCache) Reload(path string) {
	c.mu.Lock()
	delete(c.byPath, path)
	c.mu.Unlock()
}

// Connection represents a single WebSocket transport connection carrying
// updates for one render session. Adapted from the teacher's Connection
// (registry.go): GroupID/UserID dual identity is kept for multi-tab/
// multi-device fan-out, and Template is replaced by SessionID, since tree
// diffing state now lives in a Controller rather than on the connection
// itself.
type Connection struct {
	Conn      *websocket.Conn
	SessionID string
	GroupID   string // session group (multi-tab boundary)
	UserID    string // "" for anonymous

	mu sync.Mutex
}

// Send writes a message frame to this connection. Safe for concurrent use.
func (c *Connection) Send(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// connSet is a membership set keyed by connection identity, used instead of
// a slice so Unregister is a single map delete rather than a scan-and-copy
// over every other connection sharing the same group or user.
type connSet map[*Connection]struct{}

// ConnectionRegistry tracks active transport connections, indexed by group
// and by user for broadcast fan-out. Unlike a slice-per-key index, the
// primary record of membership is a single set (all); byGroup and byUser
// are secondary sets pointing at the same *Connection values, so Count is
// a map length rather than a sum over one of the indexes, and removal from
// any of the three sets never touches the others' backing storage.
type ConnectionRegistry struct {
	mu      sync.RWMutex
	all     connSet
	byGroup map[string]connSet
	byUser  map[string]connSet
}

// NewConnectionRegistry creates an empty registry.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		all:     make(connSet),
		byGroup: make(map[string]connSet),
		byUser:  make(map[string]connSet),
	}
}

// Register indexes conn by both its group and user identity. Idempotent
// registration is the caller's responsibility (a connection is normally
// registered exactly once, at accept time).
func (r *ConnectionRegistry) Register(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.all[conn] = struct{}{}
	addToSetIndex(r.byGroup, conn.GroupID, conn)
	addToSetIndex(r.byUser, conn.UserID, conn)
}

// Unregister removes conn from the registry. If the connection is not
// registered, this is a no-op.
func (r *ConnectionRegistry) Unregister(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.all[conn]; !ok {
		return
	}
	delete(r.all, conn)
	removeFromSetIndex(r.byGroup, conn.GroupID, conn)
	removeFromSetIndex(r.byUser, conn.UserID, conn)
}

// GetByGroup returns every connection sharing groupID (all tabs of one view
// session group).
func (r *ConnectionRegistry) GetByGroup(groupID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return flattenSet(r.byGroup[groupID])
}

// GetByUser returns every connection belonging to userID (all devices for
// one signed-in user, or all anonymous connections for "").
func (r *ConnectionRegistry) GetByUser(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return flattenSet(r.byUser[userID])
}

// Count returns the total number of registered connections.
func (r *ConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all)
}

func addToSetIndex(index map[string]connSet, key string, conn *Connection) {
	set, ok := index[key]
	if !ok {
		set = make(connSet)
		index[key] = set
	}
	set[conn] = struct{}{}
}

func removeFromSetIndex(index map[string]connSet, key string, conn *Connection) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(index, key)
	}
}

func flattenSet(set connSet) []*Connection {
	out := make([]*Connection, 0, len(set))
	for conn := range set {
		out = append(out, conn)
	}
	return out
}
