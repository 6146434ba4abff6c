// Package rest generates CRUD HTTP endpoints from a schema registry.
//
// Each registered table is exposed at /{table} (under an optional base URL)
// and supports the standard verbs:
//
//	Method | Path            | Behavior
//	-------|-----------------|------------------------------------------
//	GET    | /{table}        | list records, filtered and paginated
//	GET    | /{table}/{id}   | single record by identity column
//	POST   | /{table}        | create one record or a batch
//	PUT    | /{table}?where= | update by id
//	PATCH  | /{table}?where= | alias of PUT
//	DELETE | /{table}?where= | delete by id
//
// List query parameters:
//
//	Parameter              | Description
//	-----------------------|------------------------------------------
//	?select=col1,col2      | Select specific columns ("*" = all)
//	?where={"a":{"gt":1}}  | JSON filter expression (and/or/not,
//	                       | eq, ne, gt, gte, lt, lte, like, ilike)
//	?orderBy={"a":"desc"}  | Order results (asc or desc, exact)
//	?limit=10              | Limit number of results
//	?offset=5              | Pagination offset (wins over page)
//	?page=2                | 1-based page, effective with limit
//
// Update and delete accept only the filter {"id": value}; bulk mutation by
// arbitrary predicate is rejected with 400.
//
// Every response is a uniform JSON envelope:
//
//	{"success": bool, "data": ..., "error": "...", "message": "...",
//	 "meta": {"total": n, "limit": n, "offset": n, "page": n}}
//
// meta.total is the count of rows returned, not the count of all matching
// rows; the two differ when limit truncates the result.
//
// Example usage:
//
//	registry, err := schema.LoadPostgres(ctx, pool, "public")
//	if err != nil {
//		log.Fatal(err)
//	}
//	server := rest.NewServer(registry, rest.NewPgExecutor(pool),
//		rest.WithBaseURL("/api"),
//		rest.WithExcludedTables("migrations"))
//	log.Fatal(server.Start(":8080"))
package rest
