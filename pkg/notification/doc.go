// Package notification records which files have been published so that
// collectors can discover them through the file lookup API.
//
// Every newly published file produces one Record with a strictly increasing
// id. Ids are seeded from wall-clock milliseconds, so a client that remembers
// the last id it saw can ask for everything newer with a filter such as
// "id=gt=1650000000000".
package notification
