package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ingredientRow is the gorm model behind PostgresSheet. Seq orders rows.
type ingredientRow struct {
	Seq       uint   `gorm:"primaryKey;autoIncrement"`
	RecordID  string `gorm:"column:record_id;not null;default:''"`
	Name      string `gorm:"column:name;not null;default:''"`
	Quantity  string `gorm:"column:quantity;not null;default:''"`
	Unit      string `gorm:"column:unit;not null;default:''"`
	ExpiresAt string `gorm:"column:expires_at;not null;default:''"`
	Location  string `gorm:"column:location;not null;default:''"`
	Notes     string `gorm:"column:notes;not null;default:''"`
	CreatedOn string `gorm:"column:created_at;not null;default:''"`
	UpdatedOn string `gorm:"column:updated_at;not null;default:''"`
}

func (ingredientRow) TableName() string { return "ingredient_rows" }

func rowToModel(row Row) ingredientRow {
	row = normalize(row)
	return ingredientRow{
		RecordID:  row[ColID],
		Name:      row[ColName],
		Quantity:  row[ColQuantity],
		Unit:      row[ColUnit],
		ExpiresAt: row[ColExpiresAt],
		Location:  row[ColLocation],
		Notes:     row[ColNotes],
		CreatedOn: row[ColCreatedAt],
		UpdatedOn: row[ColUpdatedAt],
	}
}

func modelToRow(m ingredientRow) Row {
	return Row{m.RecordID, m.Name, m.Quantity, m.Unit, m.ExpiresAt, m.Location, m.Notes, m.CreatedOn, m.UpdatedOn}
}

// PostgresSheet stores rows in Postgres through gorm.
type PostgresSheet struct {
	db *gorm.DB
}

// OpenPostgresSheet connects with the given DSN and migrates the table.
func OpenPostgresSheet(dsn string) (*PostgresSheet, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewPostgresSheet(db)
}

func NewPostgresSheet(db *gorm.DB) (*PostgresSheet, error) {
	if err := db.AutoMigrate(&ingredientRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate ingredient_rows: %w", err)
	}
	return &PostgresSheet{db: db}, nil
}

func (p *PostgresSheet) AppendRow(ctx context.Context, row Row) error {
	m := rowToModel(row)
	if err := p.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

func (p *PostgresSheet) ReadAll(ctx context.Context) ([]Row, error) {
	var models []ingredientRow
	if err := p.db.WithContext(ctx).Order("seq").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	rows := make([]Row, 0, len(models))
	for _, m := range models {
		rows = append(rows, modelToRow(m))
	}
	return rows, nil
}

func (p *PostgresSheet) UpdateCell(ctx context.Context, row, col int, value string) error {
	if err := checkColumn(col); err != nil {
		return err
	}
	target, err := p.rowAt(ctx, row)
	if err != nil {
		return err
	}
	err = p.db.WithContext(ctx).Model(&ingredientRow{}).
		Where("seq = ?", target.Seq).
		Update(columnNames[col], value).Error
	if err != nil {
		return fmt.Errorf("failed to update cell: %w", err)
	}
	return nil
}

func (p *PostgresSheet) DeleteRow(ctx context.Context, row int) error {
	target, err := p.rowAt(ctx, row)
	if err != nil {
		return err
	}
	if err := p.db.WithContext(ctx).Delete(&ingredientRow{}, target.Seq).Error; err != nil {
		return fmt.Errorf("failed to delete row: %w", err)
	}
	return nil
}

func (p *PostgresSheet) rowAt(ctx context.Context, row int) (ingredientRow, error) {
	if row < 0 {
		return ingredientRow{}, fmt.Errorf("row %d: %w", row, ErrRowOutOfRange)
	}
	var m ingredientRow
	err := p.db.WithContext(ctx).Order("seq").Offset(row).Limit(1).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ingredientRow{}, fmt.Errorf("row %d: %w", row, ErrRowOutOfRange)
	}
	if err != nil {
		return ingredientRow{}, fmt.Errorf("failed to locate row: %w", err)
	}
	return m, nil
}
