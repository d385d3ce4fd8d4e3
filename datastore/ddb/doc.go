/*
Package ddb provides a DynamoDB implementation of the datastore repository.

The Store supports:
  - Single-table design patterns
  - Macro-based key expansion (e.g., "USER#{ID}")
  - Global Secondary Index (GSI) and time-range queries
  - Paged reads and batch writes with retry on throttling
  - Conditional writes for insert-if-absent and update-if-exists
  - Automatic EntityType injection for polymorphic storage

Macro Expansion:
Keys can use macros that are replaced with entity attribute values:

	registry.MustRegisterIndexMap[User](map[string]string{
	    "PK":     "USER#{ID}",    // Becomes "USER#123"
	    "SK":     "PROFILE#{ID}",
	    "GSI1PK": "EMAIL#{Email}",
	})

	store, err := ddb.New[string, User](client, "users", func(u User) string { return u.ID })

Lookups by identifier expand the PK and SK templates with the identifier, so
every macro in them must name the identifier attribute.

Conditions:
Conditions are *storagemodels.QueryParams. A key condition runs a Query, an
empty one a Scan; both are restricted to the store's EntityType.

	n, err := store.CountByCondition(ctx, &storagemodels.QueryParams{
	    KeyConditionExpression: "PK = :pk",
	    ExpressionAttributeValues: map[string]types.AttributeValue{
	        ":pk": &types.AttributeValueMemberS{Value: "USER#123"},
	    },
	})

	users, err := store.QueryGSI().WithPartitionKey("a@example.com").Find(ctx)
*/
package ddb
