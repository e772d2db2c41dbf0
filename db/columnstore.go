// Package db provides the wide-column store session the graph core depends
// on, plus WithRetry for its transient errors. ColumnStoreSession binds gocql
// to one collection's keyspace and implements graph.Session, the graph core's
// sole storage dependency.
package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/evalgo/graphcore/common"
	"github.com/evalgo/graphcore/config"
	"github.com/evalgo/graphcore/graph"
	"github.com/evalgo/graphcore/identifier"
	"github.com/gocql/gocql"
)

// ColumnStoreConfig configures the Cassandra/ScyllaDB cluster the graph core
// talks to. Build it from DefaultColumnStoreConfig or, from GRAPHCORE_SCYLLA_*
// environment variables, with LoadColumnStoreConfigFromEnv.
type ColumnStoreConfig struct {
	Hosts             []string
	ReplicationFactor int
	Datacenter        string
	Timeout           time.Duration
}

// DefaultColumnStoreConfig matches the single-node development defaults the
// original implementation used.
func DefaultColumnStoreConfig() ColumnStoreConfig {
	return ColumnStoreConfig{
		Hosts:             []string{"127.0.0.1"},
		ReplicationFactor: 1,
		Datacenter:        "datacenter1",
		Timeout:           10 * time.Second,
	}
}

// LoadColumnStoreConfigFromEnv reads GRAPHCORE_SCYLLA_* environment variables
// via config.EnvConfig, falling back to DefaultColumnStoreConfig's values for
// anything unset.
func LoadColumnStoreConfigFromEnv() ColumnStoreConfig {
	def := DefaultColumnStoreConfig()
	env := config.NewEnvConfig("GRAPHCORE_SCYLLA")
	return ColumnStoreConfig{
		Hosts:             env.GetStringSlice("HOSTS", def.Hosts),
		ReplicationFactor: env.GetInt("REPLICATION_FACTOR", def.ReplicationFactor),
		Datacenter:        env.GetString("DATACENTER", def.Datacenter),
		Timeout:           env.GetDuration("TIMEOUT", def.Timeout),
	}
}

// ColumnStoreSession wraps a *gocql.Session bound to one collection's
// keyspace and implements graph.Session.
type ColumnStoreSession struct {
	session  *gocql.Session
	keyspace string
}

var _ graph.Session = (*ColumnStoreSession)(nil)

// ColumnStoreManager caches one ColumnStoreSession per collection, created on
// first use, matching the graph core's "process-global per (store,
// collection)" session policy (see package graph's concurrency notes).
type ColumnStoreManager struct {
	cfg      ColumnStoreConfig
	mu       sync.Mutex
	sessions map[string]*ColumnStoreSession
}

// NewColumnStoreManager returns a manager that lazily opens and caches
// sessions per collection.
func NewColumnStoreManager(cfg ColumnStoreConfig) *ColumnStoreManager {
	return &ColumnStoreManager{cfg: cfg, sessions: make(map[string]*ColumnStoreSession)}
}

// CollectionSession returns the cached session for collectionID, opening and
// migrating its keyspace on first use.
func (m *ColumnStoreManager) CollectionSession(ctx context.Context, collectionID identifier.CollectionID) (*ColumnStoreSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := collectionID.String()
	if s, ok := m.sessions[key]; ok {
		return s, nil
	}

	dbName, err := collectionID.DatabaseName()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", identifier.ErrInvalidIdentifier, err)
	}

	s, err := openSession(ctx, m.cfg, dbName.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", graph.ErrBackendUnavailable, err)
	}
	m.sessions[key] = s
	return s, nil
}

// Close tears down every cached session. Intended for process shutdown.
func (m *ColumnStoreManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.session.Close()
	}
	m.sessions = make(map[string]*ColumnStoreSession)
}

func openSession(ctx context.Context, cfg ColumnStoreConfig, keyspace string) (*ColumnStoreSession, error) {
	contextLogger := common.NewContextLogger(common.Logger, map[string]interface{}{"keyspace": keyspace, "hosts": cfg.Hosts})
	contextLogger.Info("db: opening column store session")
	defer common.LogDuration(contextLogger, "open column store session")()

	bootstrap := gocql.NewCluster(cfg.Hosts...)
	bootstrap.Timeout = cfg.Timeout
	bootstrapSession, err := bootstrap.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect without keyspace: %w", err)
	}
	defer bootstrapSession.Close()

	createKeyspace := fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = {
			'class': 'NetworkTopologyStrategy', '%s': %d
		}`, keyspace, cfg.Datacenter, cfg.ReplicationFactor,
	)
	if err := bootstrapSession.Query(createKeyspace).WithContext(ctx).Exec(); err != nil {
		return nil, fmt.Errorf("create keyspace %s: %w", keyspace, err)
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = keyspace
	cluster.Timeout = cfg.Timeout
	cluster.Consistency = gocql.Quorum

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to keyspace %s: %w", keyspace, err)
	}

	s := &ColumnStoreSession{session: session, keyspace: keyspace}
	if err := graph.EnsureSchema(ctx, s); err != nil {
		session.Close()
		return nil, err
	}
	return s, nil
}

// Keyspace implements graph.Session.
func (s *ColumnStoreSession) Keyspace() string { return s.keyspace }

// Execute implements graph.Session.
func (s *ColumnStoreSession) Execute(ctx context.Context, query string, args ...any) (graph.Rows, error) {
	iter := s.session.Query(query, args...).WithContext(ctx).Iter()
	return &gocqlRows{iter: iter, scanner: iter.Scanner()}, nil
}

// ExecutePaged implements graph.Session.
func (s *ColumnStoreSession) ExecutePaged(ctx context.Context, query string, pageSize int, pageState []byte, args ...any) (graph.Rows, []byte, error) {
	q := s.session.Query(query, args...).WithContext(ctx).PageSize(pageSize)
	if pageState != nil {
		q = q.PageState(pageState)
	}
	iter := q.Iter()
	next := iter.PageState()
	if len(next) == 0 {
		next = nil
	}
	return &gocqlRows{iter: iter, scanner: iter.Scanner()}, next, nil
}

// Batch implements graph.Session.
func (s *ColumnStoreSession) Batch(ctx context.Context, kind graph.BatchKind, statements []graph.Statement) error {
	if len(statements) == 0 {
		return nil
	}

	gocqlKind, err := toGocqlBatchType(kind)
	if err != nil {
		return err
	}

	batch := s.session.NewBatch(gocqlKind).WithContext(ctx)
	for _, stmt := range statements {
		batch.Query(stmt.Query, stmt.Args...)
	}
	return s.session.ExecuteBatch(batch)
}

func toGocqlBatchType(kind graph.BatchKind) (gocql.BatchType, error) {
	switch kind {
	case graph.LoggedBatch:
		return gocql.LoggedBatch, nil
	case graph.UnloggedBatch:
		return gocql.UnloggedBatch, nil
	case graph.CounterBatch:
		return gocql.CounterBatch, nil
	default:
		return 0, fmt.Errorf("db: unknown batch kind %d", kind)
	}
}

// gocqlRows adapts gocql's Scanner (the Next()/Scan() split cursor over a
// *gocql.Iter) to graph.Rows.
type gocqlRows struct {
	iter    *gocql.Iter
	scanner gocql.Scanner
	err     error
}

func (r *gocqlRows) Next() bool {
	return r.scanner.Next()
}

func (r *gocqlRows) Scan(dest ...any) error {
	return r.scanner.Scan(dest...)
}

func (r *gocqlRows) Err() error {
	if err := r.scanner.Err(); err != nil {
		return err
	}
	return r.err
}

func (r *gocqlRows) Close() error { return r.iter.Close() }
