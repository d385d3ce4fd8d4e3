/*
Package entitysync provides a generic data-access service that mediates every
read and write of an entity type and announces mutations as change events.

A Service binds three things together:
  - a Descriptor: the static description of the entity type (identifier
    accessors, updatable fields, schema and table, notification settings)
  - a datastore.Repository: the persistence backend (DynamoDB, SQL, mock)
  - a notify.Notifier: the sink for change events (NATS, S3 audit, in-memory)

With notifications disabled a mutation is a single backend call. With
notifications enabled the service reads before-images where it needs them,
performs the write, computes the modified fields and emits exactly one event
per successful mutation:
  - insert events carry the stored entities
  - update events carry before-images, after-images and modified field names
  - delete events carry identifier-only images of the removed records

Empty queries are guarded: they match nothing and never reach the backend, so
an accidental "update everything" or "delete everything" is not expressible.

Basic Usage:

	desc := entitysync.Descriptor[string, User]{
		Schema: "app",
		Table:  "users",
		Notify: true,
		GetID:  func(u User) string { return u.ID },
		SetID:  func(u *User, id string) error { u.ID = id; return nil },
		Fields: []entitysync.Field[User]{
			entitysync.PointerField("Name", func(u *User) **string { return &u.Name }),
		},
	}

	store, _ := ddb.New[string, User](client, "users", desc.GetID)
	users, _ := entitysync.NewService[string, User](store, desc,
		entitysync.WithNotifier(natsnotify.New(conn, "changes")))
	defer users.Close()

	// Emits one update event with modified fields [Name]
	_, err := users.UpdateByIDs(ctx, User{Name: &name}, []string{"u-1"})

Async delivery (the default) runs through a notify.Async dispatcher, so a
slow notifier never holds up the mutating caller. Close drains it.

Services of different entity types can be kept in a Registry and looked up by
name with Lookup.
*/
package entitysync
