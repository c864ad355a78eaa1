// Package catalog is the minimal system catalog: an in-memory directory
// mapping table and index names to the concrete heaps/indexes the
// executors pull from and push into. It carries no persistence of its
// own (out of scope); a real deployment would recover this directory
// from a bootstrap table instead of rebuilding it from Go code.
package catalog

import (
	"fmt"
	"sync"

	"github.com/coredb/coredb/internal/hashindex"
	"github.com/coredb/coredb/internal/heap"
	"github.com/coredb/coredb/internal/record"
)

// TableInfo describes one table: its schema, its heap, and the catalog
// identity executors plan against.
type TableInfo struct {
	Name   string
	OID    uint32
	Schema record.Schema
	Heap   *heap.TableHeap
}

// IndexInfo describes one index over a table: which columns it's keyed
// on and the hash table backing it.
type IndexInfo struct {
	Name      string
	TableName string
	KeySchema record.Schema
	KeyAttrs  []int
	Index     *hashindex.HashTable
}

// Catalog is the directory executors resolve names against.
type Catalog interface {
	GetTable(oid uint32) (*TableInfo, error)
	GetTableByName(name string) (*TableInfo, error)
	GetTableIndexes(tableName string) []*IndexInfo
}

var (
	ErrTableNotFound = fmt.Errorf("catalog: table not found")
	ErrTableExists   = fmt.Errorf("catalog: table already exists")
)

// SimpleCatalog is the in-memory Catalog implementation: enough for
// executors and tests to resolve tables/indexes against, nothing more.
type SimpleCatalog struct {
	mu          sync.RWMutex
	nextOID     uint32
	tablesByOID map[uint32]*TableInfo
	tablesByName map[string]*TableInfo
	indexes     map[string][]*IndexInfo // table name -> indexes on it
}

func NewSimpleCatalog() *SimpleCatalog {
	return &SimpleCatalog{
		tablesByOID:  make(map[uint32]*TableInfo),
		tablesByName: make(map[string]*TableInfo),
		indexes:      make(map[string][]*IndexInfo),
	}
}

var _ Catalog = (*SimpleCatalog)(nil)

// CreateTable registers a table's heap under name, assigning it a fresh
// OID.
func (c *SimpleCatalog) CreateTable(name string, schema record.Schema, h *heap.TableHeap) (*TableInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tablesByName[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTableExists, name)
	}
	c.nextOID++
	info := &TableInfo{Name: name, OID: c.nextOID, Schema: schema, Heap: h}
	c.tablesByOID[info.OID] = info
	c.tablesByName[name] = info
	return info, nil
}

func (c *SimpleCatalog) GetTable(oid uint32) (*TableInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.tablesByOID[oid]
	if !ok {
		return nil, fmt.Errorf("%w: oid %d", ErrTableNotFound, oid)
	}
	return info, nil
}

func (c *SimpleCatalog) GetTableByName(name string) (*TableInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.tablesByName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return info, nil
}

// CreateIndex registers an index over tableName.
func (c *SimpleCatalog) CreateIndex(name, tableName string, keySchema record.Schema, keyAttrs []int, idx *hashindex.HashTable) *IndexInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	info := &IndexInfo{Name: name, TableName: tableName, KeySchema: keySchema, KeyAttrs: keyAttrs, Index: idx}
	c.indexes[tableName] = append(c.indexes[tableName], info)
	return info
}

func (c *SimpleCatalog) GetTableIndexes(tableName string) []*IndexInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*IndexInfo(nil), c.indexes[tableName]...)
}
