// Package cli implements the collectionctl REPL: a line-oriented shell over
// one collection.Accessor with export and import to object storage.
//
// Every command takes the rest of the line as its argument. JSON arguments
// may contain spaces:
//
//	collectionctl> create --id {"id":"ann","name":"Ann","age":31}
//	collectionctl> list {"orderOptions":{"field":"age","pagingOptions":{"limit":5}}}
package cli
