package domain

import (
	"time"

	"github.com/google/uuid"
)

type MOQScope string

const (
	MOQScopeGlobal  MOQScope = "GLOBAL"
	MOQScopeProduct MOQScope = "PRODUCT"
	MOQScopeVariant MOQScope = "VARIANT"
)

// MOQSetting fixes the minimum order quantity at one scope. Exactly one
// setting is effective per variant, resolved VARIANT > PRODUCT > GLOBAL > 1.
type MOQSetting struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Scope       MOQScope   `gorm:"type:varchar(10);not null;index"`
	ProductID   *uuid.UUID `gorm:"type:uuid;index"`
	VariantID   *uuid.UUID `gorm:"type:uuid;index"`
	MinQuantity int        `gorm:"not null"`
	Active      bool       `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MOQResolution is the effective minimum for a variant and where it came
// from. Source is a MOQScope or "DEFAULT".
type MOQResolution struct {
	MinQuantity int
	Source      string
	Setting     *MOQSetting
}

const MOQSourceDefault = "DEFAULT"

// DefaultMOQ applies when no active setting matches any scope.
const DefaultMOQ = 1
