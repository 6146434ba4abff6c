// Package testutil provides shared fixtures for tests.
package testutil

import "github.com/tablerest/tablerest/pkg/schema"

// SampleRegistry returns a small registry used across test packages:
// posts and users, plus a secrets table meant for exclusion tests.
func SampleRegistry() *schema.Registry {
	return schema.NewRegistry(
		schema.Table{
			Name: "posts",
			Columns: []schema.Column{
				{Name: "id", Kind: schema.KindNumber, HasDefault: true, IsIdentity: true},
				{Name: "title", Kind: schema.KindString},
				{Name: "body", Kind: schema.KindString, Nullable: true},
				{Name: "published", Kind: schema.KindBoolean, HasDefault: true},
				{Name: "author_id", Kind: schema.KindNumber},
				{Name: "createdAt", Kind: schema.KindDate, HasDefault: true},
			},
		},
		schema.Table{
			Name: "users",
			Columns: []schema.Column{
				{Name: "id", Kind: schema.KindNumber, HasDefault: true, IsIdentity: true},
				{Name: "name", Kind: schema.KindString},
				{Name: "email", Kind: schema.KindString},
				{Name: "created_at", Kind: schema.KindDate, HasDefault: true},
			},
		},
		schema.Table{
			Name: "secrets",
			Columns: []schema.Column{
				{Name: "id", Kind: schema.KindNumber, HasDefault: true, IsIdentity: true},
				{Name: "token", Kind: schema.KindString},
			},
		},
	)
}
