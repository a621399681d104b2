// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

// query.go contains "raw sql" for the apitoken package that goes directly
// against the db via sql.DB vs the dbw abstraction.

const (
	// descendantTokenIdsQuery walks the derivation hierarchy from a parent
	// down to every transitive descendant.
	descendantTokenIdsQuery = `
with recursive descendants (public_id) as (
    select public_id
      from api_token
     where parent_id = @parent_id
    union all
    select t.public_id
      from api_token t
      join descendants d on t.parent_id = d.public_id
)
select public_id
  from descendants;
`

	// revokeTokensQuery marks a set of tokens revoked. The guard keeps
	// revoked_at monotonic: a revocation may move the timestamp earlier but
	// never later, so a revoked token can't be written back to validity.
	revokeTokensQuery = `
update api_token
   set revoked_at = ?,
       update_time = ?
 where public_id in ?
   and (revoked_at is null or revoked_at > ?);
`

	// touchLastUsedQuery records a successful authentication.
	touchLastUsedQuery = `
update api_token
   set last_used_at = ?,
       update_time = ?
 where public_id = ?;
`

	// updateTokenMetadataQuery rewrites a token's metadata column, used for
	// rotation lineage stamps.
	updateTokenMetadataQuery = `
update api_token
   set metadata = ?,
       update_time = ?
 where public_id = ?;
`

	// pruneTokensQuery deletes tokens whose expiration or revocation
	// timestamp is older than the cutoff.
	pruneTokensQuery = `
delete from api_token
 where (revoked_at is not null and revoked_at < @cutoff)
    or (expires_at is not null and expires_at < @cutoff);
`

	// pruneGroupsQuery deletes groups old enough to prune once they have no
	// member tokens left.
	pruneGroupsQuery = `
delete from api_token_group
 where create_time < @cutoff
   and not exists (
       select 1
         from api_token
        where api_token.group_id = api_token_group.public_id
   );
`

	// pruneAuditEntriesQuery deletes audit entries past the retention
	// window.
	pruneAuditEntriesQuery = `
delete from api_token_audit_entry
 where create_time < @cutoff;
`

	// countTokensQuery is the base for the query conductor's Count
	// terminal; the conductor appends its where clause.
	countTokensQuery = `
select count(*)
  from api_token
`
)
