// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"time"

	"github.com/hashicorp/go-apitoken/errors"
	"github.com/hashicorp/go-dbw"
)

// groupTableName is the table token groups are stored in.
const groupTableName = "api_token_group"

// AccessTokenGroup links sibling tokens issued together, typically one per
// token type. Members share name, metadata, and environment but have
// distinct types and secrets.
type AccessTokenGroup struct {
	// PublicId is generated with the aptg prefix and is immutable.
	PublicId string `json:"public_id,omitempty" gorm:"primary_key"`

	// OwnerType and OwnerId reference the principal holding the group.
	OwnerType string `json:"owner_type,omitempty" gorm:"default:null"`
	OwnerId   string `json:"owner_id,omitempty" gorm:"default:null"`

	// Name shared by the member tokens.
	Name string `json:"name,omitempty" gorm:"default:null"`

	// Environment shared by the member tokens.
	Environment string `json:"environment,omitempty" gorm:"default:null"`

	// Metadata shared by the member tokens.
	Metadata StringMap `json:"metadata,omitempty" gorm:"type:text;default:null"`

	// CreateTime is set by the db.
	CreateTime *time.Time `json:"create_time,omitempty" gorm:"default:current_timestamp"`

	// UpdateTime is set by the db.
	UpdateTime *time.Time `json:"update_time,omitempty" gorm:"default:current_timestamp"`

	// Members are the group's tokens, populated on lookup. Not a stored
	// column.
	Members []*AccessToken `json:"members,omitempty" gorm:"-"`
}

func allocAccessTokenGroup() *AccessTokenGroup {
	return &AccessTokenGroup{}
}

// Clone an AccessTokenGroup. Members are cloned too.
func (g *AccessTokenGroup) Clone() *AccessTokenGroup {
	cp := *g
	cp.Metadata = g.Metadata.Clone()
	if g.CreateTime != nil {
		at := *g.CreateTime
		cp.CreateTime = &at
	}
	if g.UpdateTime != nil {
		at := *g.UpdateTime
		cp.UpdateTime = &at
	}
	if g.Members != nil {
		cp.Members = make([]*AccessToken, 0, len(g.Members))
		for _, m := range g.Members {
			cp.Members = append(cp.Members, m.Clone())
		}
	}
	return &cp
}

// TableName returns the table name.
func (g *AccessTokenGroup) TableName() string {
	return groupTableName
}

// GetPublicId returns the group's public id.
func (g *AccessTokenGroup) GetPublicId() string {
	return g.PublicId
}

// VetForWrite validates the group before it's written.
func (g *AccessTokenGroup) VetForWrite(ctx context.Context, r dbw.Reader, opType dbw.OpType, opt ...dbw.Option) error {
	const op = "apitoken.(AccessTokenGroup).VetForWrite"
	if opType != dbw.CreateOp {
		return nil
	}
	switch {
	case g.PublicId == "":
		return errors.New(ctx, errors.InvalidPublicId, op, "missing public id")
	case g.OwnerType == "" || g.OwnerId == "":
		return errors.New(ctx, errors.MissingOwner, op, "missing owner reference")
	case g.Name == "":
		return errors.New(ctx, errors.InvalidParameter, op, "missing name")
	case g.Environment == "":
		return errors.New(ctx, errors.InvalidParameter, op, "missing environment")
	}
	return nil
}
