package output

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
	_ "modernc.org/sqlite"
)

const (
	eventQueueSize = 65536 // 写入队列长度，写满后丢弃新事件
	commitEvery    = 512   // 每个事务最多包含的事件数
)

// EventDB 寻路事件数据库
// 功能：把寻路事件异步写入SQLite，Publish从不阻塞仿真
// 说明：单个写协程批量提交事务，队列写满时事件被丢弃并计数
type EventDB struct {
	db *sql.DB

	ch   chan request
	wg   sync.WaitGroup
	once sync.Once

	// mtx保护ch的发送与关闭，Publish与Flush持读锁
	mtx     sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

type request struct {
	ev    schema.RouteEvent
	flush chan struct{} // 非nil时为刷新请求
}

// OpenEventDB 打开（或创建）事件数据库
// 参数：path-数据库文件路径，所在目录不存在时自动创建
func OpenEventDB(path string) (*EventDB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty event db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS route_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			t REAL NOT NULL,
			task_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			status TEXT NOT NULL,
			field TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_route_events_agent ON route_events(agent_id, seq);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	s := &EventDB{
		db: db,
		ch: make(chan request, eventQueueSize),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	log.Infof("event db opened at %s", path)
	return s, nil
}

// Publish 写入一条事件（非阻塞）
func (s *EventDB) Publish(ev schema.RouteEvent) {
	if s == nil {
		return
	}
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- request{ev: ev}:
	default:
		if n := s.dropped.Add(1); n == 1 || n%1000 == 0 {
			log.Warnf("event db falls behind, %d events dropped", n)
		}
	}
}

// Flush 等待此前写入的事件全部提交
func (s *EventDB) Flush() {
	if s == nil {
		return
	}
	done := make(chan struct{})
	s.mtx.RLock()
	if s.closed {
		s.mtx.RUnlock()
		return
	}
	s.ch <- request{flush: done}
	s.mtx.RUnlock()
	<-done
}

// Dropped 因队列写满而丢弃的事件数
func (s *EventDB) Dropped() uint64 {
	return s.dropped.Load()
}

// Close 提交剩余事件并关闭数据库，可重复调用
func (s *EventDB) Close() error {
	var err error
	s.once.Do(func() {
		s.mtx.Lock()
		s.closed = true
		close(s.ch)
		s.mtx.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Events 查询事件，agentID为空时返回全部，按写入顺序排列
func (s *EventDB) Events(ctx context.Context, agentID string) ([]schema.RouteEvent, error) {
	query := `SELECT t, task_id, agent_id, status, field, x, y FROM route_events`
	args := []any{}
	if agentID != "" {
		query += ` WHERE agent_id = ?`
		args = append(args, agentID)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY seq`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := make([]schema.RouteEvent, 0)
	for rows.Next() {
		var ev schema.RouteEvent
		if err := rows.Scan(&ev.T, &ev.TaskID, &ev.AgentID, &ev.Status, &ev.Pos.Field, &ev.Pos.X, &ev.Pos.Y); err != nil {
			return nil, err
		}
		res = append(res, ev)
	}
	return res, rows.Err()
}

// loop 写协程
// 算法说明：
// 1. 事件写入当前事务，事务满commitEvery条时提交
// 2. 队列暂时为空或收到刷新请求时提交
// 3. 队列关闭后提交剩余事件并退出
func (s *EventDB) loop() {
	insert, err := s.db.Prepare(`INSERT INTO route_events(t,task_id,agent_id,status,field,x,y) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		log.Errorf("failed to prepare event insert: %v", err)
		for r := range s.ch {
			if r.flush != nil {
				close(r.flush)
			}
		}
		return
	}
	defer insert.Close()

	var (
		tx      *sql.Tx
		opCount int
	)
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			log.Errorf("failed to commit %d events: %v", opCount, err)
		}
		tx, opCount = nil, 0
	}

	for r := range s.ch {
		if r.flush != nil {
			commit()
			close(r.flush)
			continue
		}
		if tx == nil {
			if tx, err = s.db.Begin(); err != nil {
				log.Errorf("failed to begin event tx: %v", err)
				tx = nil
				continue
			}
		}
		ev := r.ev
		if _, err := tx.Stmt(insert).Exec(ev.T, ev.TaskID, ev.AgentID, ev.Status, ev.Pos.Field, ev.Pos.X, ev.Pos.Y); err != nil {
			log.Errorf("failed to insert event %+v: %v", ev, err)
			continue
		}
		if opCount++; opCount >= commitEvery || len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}
