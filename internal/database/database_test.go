package database

import (
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := OpenSQLite("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestFreeSlotAllowsOnePortfolioPerOwner(t *testing.T) {
	db := newTestDB(t)
	user := User{Name: "Ada", Email: "ada@example.com"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	slot := user.ID
	first := Portfolio{UserID: user.ID, Subdomain: "ada", TemplateID: "modern", FreeSlot: &slot}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("create first: %v", err)
	}

	second := Portfolio{UserID: user.ID, Subdomain: "ada-two", TemplateID: "modern", FreeSlot: &slot}
	err := db.Create(&second).Error
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	paid := Portfolio{UserID: user.ID, Subdomain: "ada-three", TemplateID: "modern"}
	if err := db.Create(&paid).Error; err != nil {
		t.Fatalf("portfolio without free slot must be allowed: %v", err)
	}
	another := Portfolio{UserID: user.ID, Subdomain: "ada-four", TemplateID: "modern"}
	if err := db.Create(&another).Error; err != nil {
		t.Fatalf("multiple NULL free slots must be allowed: %v", err)
	}
}

func TestSubdomainIsGloballyUnique(t *testing.T) {
	db := newTestDB(t)
	a := User{Name: "A", Email: "a@example.com"}
	b := User{Name: "B", Email: "b@example.com"}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("create a: %v", err)
	}
	if err := db.Create(&b).Error; err != nil {
		t.Fatalf("create b: %v", err)
	}

	if err := db.Create(&Portfolio{UserID: a.ID, Subdomain: "shared", TemplateID: "modern"}).Error; err != nil {
		t.Fatalf("create first: %v", err)
	}
	err := db.Create(&Portfolio{UserID: b.ID, Subdomain: "shared", TemplateID: "modern"}).Error
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(nil) {
		t.Fatal("nil is not a violation")
	}
	if !IsUniqueViolation(gorm.ErrDuplicatedKey) {
		t.Fatal("ErrDuplicatedKey should be a violation")
	}
	if !IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx_portfolios_subdomain"`)) {
		t.Fatal("postgres message should be recognised")
	}
	if IsUniqueViolation(errors.New("connection reset")) {
		t.Fatal("unrelated error is not a violation")
	}
}
