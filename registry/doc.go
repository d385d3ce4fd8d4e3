/*
Package registry holds the process-wide DynamoDB mappings used by the ddb
backend.

Index Map Registry:
Associates Go types with DynamoDB key templates. PK and SK are required;
further entries (GSI1PK, GSI1SK, ...) populate secondary indexes on write:

	registry.MustRegisterIndexMap[User](map[string]string{
	    "PK":     "USER#{Id}",
	    "SK":     "USER#{Id}",
	    "GSI1PK": "EMAIL#{Email}",
	    "GSI1SK": "USER",
	})

Type Registry:
Maps the EntityType attribute stored with every item to an unmarshal
function, so that single-table reads can return items of several types.
ddb stores register their entity type automatically.

Both registries are safe for concurrent use and are normally populated in
init functions.
*/
package registry
