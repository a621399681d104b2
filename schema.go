// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"context"
	"database/sql"

	"github.com/hashicorp/go-apitoken/errors"
)

// migrationStatements is the package's schema, portable across sqlite and
// postgres. Order matters: tokens reference groups.
var migrationStatements = []string{
	`create table if not exists api_token_group (
  public_id text not null primary key,
  owner_type text not null,
  owner_id text not null,
  name text not null,
  environment text,
  metadata text,
  create_time timestamp not null default current_timestamp,
  update_time timestamp not null default current_timestamp
);`,
	`create table if not exists api_token (
  public_id text not null primary key,
  owner_type text not null,
  owner_id text not null,
  context_type text,
  context_id text,
  boundary_type text,
  boundary_id text,
  type text not null,
  prefix text not null,
  environment text not null,
  name text,
  hashed_secret text not null unique,
  abilities text,
  allowed_ips text,
  allowed_domains text,
  rate_limit_per_minute integer,
  expires_at timestamp,
  revoked_at timestamp,
  last_used_at timestamp,
  group_id text references api_token_group (public_id) on delete set null,
  parent_id text references api_token (public_id) on delete set null,
  depth integer not null default 0,
  metadata text,
  derived_metadata text,
  create_time timestamp not null default current_timestamp,
  update_time timestamp not null default current_timestamp
);`,
	// No foreign key on token_id: audit entries outlive their tokens and
	// failed authentications of unknown credentials have no token at all.
	`create table if not exists api_token_audit_entry (
  public_id text not null primary key,
  token_id text,
  kind text not null,
  metadata text,
  create_time timestamp not null default current_timestamp
);`,
	`create index if not exists api_token_owner_ix on api_token (owner_type, owner_id);`,
	`create index if not exists api_token_group_id_ix on api_token (group_id);`,
	`create index if not exists api_token_parent_id_ix on api_token (parent_id);`,
	`create index if not exists api_token_prefix_environment_ix on api_token (prefix, environment);`,
	`create index if not exists api_token_group_owner_ix on api_token_group (owner_type, owner_id);`,
	`create index if not exists api_token_audit_entry_token_id_ix on api_token_audit_entry (token_id);`,
}

// MigrateStore creates the package's tables and indexes if they don't
// exist. Embedders that manage their own schema can instead fold the
// equivalent DDL into their migrations.
func MigrateStore(ctx context.Context, db *sql.DB) error {
	const op = "apitoken.MigrateStore"
	if db == nil {
		return errors.New(ctx, errors.InvalidParameter, op, "missing database")
	}
	// One statement per exec; the postgres extended protocol rejects
	// multi-statement strings.
	for _, stmt := range migrationStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(ctx, err, op, errors.WithMsg("migration failed"))
		}
	}
	return nil
}
