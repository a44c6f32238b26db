package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type widget struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&widget{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func TestNewBaseStoresConnection(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	if base.db != db {
		t.Fatalf("expected base db to match provided connection")
	}
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)

	if withCtx == nil {
		t.Fatalf("expected non-nil DB when context provided")
	}
	if withCtx.Statement == nil {
		t.Fatalf("expected statement created after WithContext")
	}
	if withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through, got %v", withCtx.Statement.Context)
	}

	withoutCtx := base.DB(nil)
	if withoutCtx != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseWithTxKeepsOriginalOnNil(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)
	if base.WithTx(nil).db != db {
		t.Fatal("nil tx should keep the original connection")
	}
}

func TestBaseFirst(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)
	ctx := context.Background()

	if err := db.Create(&widget{Name: "sprocket"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	var found widget
	ok, err := base.First(ctx, &found, "name = ?", "sprocket")
	if err != nil || !ok {
		t.Fatalf("expected row, got ok=%v err=%v", ok, err)
	}
	if found.Name != "sprocket" {
		t.Fatalf("unexpected row %+v", found)
	}

	var missing widget
	ok, err = base.First(ctx, &missing, "name = ?", "gear")
	if err != nil {
		t.Fatalf("missing row should not error: %v", err)
	}
	if ok {
		t.Fatal("expected missing row to report not found")
	}
}
