package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBackend serves rows from gorm, announces changes on a Bus and keeps
// uploads in an ObjectStore.
type GormBackend struct {
	db      *gorm.DB
	bus     Bus
	objects ObjectStore
	log     *zap.Logger

	// non-nil inside Transaction
	deferred *[]Event
}

func NewGormBackend(db *gorm.DB, bus Bus, objects ObjectStore, logger *zap.Logger) *GormBackend {
	return &GormBackend{db: db, bus: bus, objects: objects, log: logger}
}

func (b *GormBackend) DB() *gorm.DB { return b.db }

func (b *GormBackend) scoped(ctx context.Context, table string, q Query) *gorm.DB {
	tx := b.db.WithContext(ctx).Table(table)
	if len(q.Filters) > 0 {
		tx = tx.Where(map[string]any(q.Filters))
	}
	if s := q.Search; s != nil && strings.TrimSpace(s.Term) != "" && len(s.Columns) > 0 {
		term := "%" + strings.ToLower(strings.TrimSpace(s.Term)) + "%"
		parts := make([]string, 0, len(s.Columns))
		args := make([]any, 0, len(s.Columns))
		for _, col := range s.Columns {
			parts = append(parts, "LOWER("+col+") LIKE ?")
			args = append(args, term)
		}
		tx = tx.Where(strings.Join(parts, " OR "), args...)
	}
	return tx
}

func (b *GormBackend) QueryRows(ctx context.Context, table string, q Query, dest any) error {
	tx := b.scoped(ctx, table, q)
	if q.Order != "" {
		tx = tx.Order(q.Order)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if err := tx.Find(dest).Error; err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	return nil
}

func (b *GormBackend) CountRows(ctx context.Context, table string, q Query) (int64, error) {
	var n int64
	if err := b.scoped(ctx, table, q).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (b *GormBackend) InsertRow(ctx context.Context, table string, row any) error {
	if err := b.db.WithContext(ctx).Table(table).Create(row).Error; err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	b.emit(ctx, table, EventInsert, row)
	return nil
}

func (b *GormBackend) UpdateRow(ctx context.Context, table string, filters Filters, changes map[string]any) (int64, error) {
	if len(filters) == 0 {
		return 0, ErrNoFilters
	}
	res := b.db.WithContext(ctx).Table(table).Where(map[string]any(filters)).Updates(changes)
	if res.Error != nil {
		return 0, fmt.Errorf("update %s: %w", table, res.Error)
	}
	if res.RowsAffected > 0 {
		b.emit(ctx, table, EventUpdate, eventRow(filters, changes))
	}
	return res.RowsAffected, nil
}

func (b *GormBackend) DeleteRow(ctx context.Context, table string, filters Filters, model any) (int64, error) {
	if len(filters) == 0 {
		return 0, ErrNoFilters
	}
	res := b.db.WithContext(ctx).Table(table).Where(map[string]any(filters)).Delete(model)
	if res.Error != nil {
		return 0, fmt.Errorf("delete %s: %w", table, res.Error)
	}
	if res.RowsAffected > 0 {
		b.emit(ctx, table, EventDelete, map[string]any(filters))
	}
	return res.RowsAffected, nil
}

func (b *GormBackend) Subscribe(ctx context.Context, table string, events []EventType, fn func(Event)) (func(), error) {
	want := make(map[EventType]bool, len(events))
	for _, e := range events {
		want[e] = true
	}
	return b.bus.Subscribe(ctx, channelFor(table), func(payload []byte) {
		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			b.log.Warn("dropping malformed change event", zap.String("table", table), zap.Error(err))
			return
		}
		if len(want) > 0 && !want[ev.Type] {
			return
		}
		fn(ev)
	})
}

func (b *GormBackend) UploadObject(ctx context.Context, bucket, path string, data []byte) (string, error) {
	return b.objects.Put(ctx, bucket, path, data)
}

func (b *GormBackend) Transaction(ctx context.Context, fn func(tx Client) error) error {
	var events []Event
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		child := &GormBackend{db: tx, bus: b.bus, objects: b.objects, log: b.log, deferred: &events}
		return fn(child)
	})
	if err != nil {
		return err
	}
	for _, ev := range events {
		b.publish(ctx, ev)
	}
	return nil
}

func (b *GormBackend) emit(ctx context.Context, table string, typ EventType, row any) {
	raw, err := json.Marshal(row)
	if err != nil {
		b.log.Warn("change event not encodable", zap.String("table", table), zap.Error(err))
		return
	}
	ev := Event{Table: table, Type: typ, Row: raw, At: time.Now()}
	if b.deferred != nil {
		*b.deferred = append(*b.deferred, ev)
		return
	}
	b.publish(ctx, ev)
}

func (b *GormBackend) publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := b.bus.Publish(ctx, channelFor(ev.Table), payload); err != nil {
		b.log.Warn("publish change event", zap.String("table", ev.Table), zap.Error(err))
	}
}

// eventRow merges filters and plain changes; SQL expressions are left out.
func eventRow(filters Filters, changes map[string]any) map[string]any {
	out := make(map[string]any, len(filters)+len(changes))
	for k, v := range filters {
		out[k] = v
	}
	for k, v := range changes {
		if _, isExpr := v.(clause.Expr); isExpr {
			continue
		}
		out[k] = v
	}
	return out
}

func channelFor(table string) string { return "table:" + table }
