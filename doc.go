/*
Package graft is a lifecycle-aware document mapper for document databases.

It wraps every document operation (init, validate, save, remove) in an
ordered middleware chain, so applications can attach behavior to the
lifecycle of their entities without coupling it to storage code.

# Concept

Graft treats persistence as a pipeline: pre hooks run before the core
action, the core action talks to the store, and post hooks run after. The
engine guarantees strict sequencing, even for hooks that complete
asynchronously, and a well-defined failure contract at every stage. This
Hexagonal Architecture keeps schemas and hooks independent from the storage
backend: the same model runs against MongoDB, Postgres or an in-memory
store.

# Key Features

  - Ordered Middleware: Hooks run in registration order, one at a time, across sync, continuation and channel-based callbacks.
  - Failure Contract: A failing pre hook stops the operation before it touches the store; core failures skip post hooks; panics become errors.
  - Embedded Schemas: Saving a parent document runs the full hook chain of every embedded child.
  - Pluggable Persistence: Store adapters and composable middleware (caching, logging, metrics) behind small ports.

# Usage

Define a schema, attach hooks, bind it to a client, and operate on plain
structs:

	package main

	import (
		"context"
		"log"
		"strings"

		"github.com/aretw0/graft"
		"github.com/aretw0/graft/pkg/adapters/memory"
	)

	type User struct {
		ID    string `bson:"_id"`
		Name  string `bson:"name"`
		Email string `bson:"email"`
	}

	func main() {
		schema := graft.NewSchema[User]("User")
		schema.Pre(graft.OpSave, func(ctx context.Context, u *User) error {
			u.Email = strings.ToLower(u.Email)
			return nil
		})

		client := graft.NewClient(memory.NewStore())
		users := graft.NewModel(client, schema)

		ctx := context.Background()
		u := &User{Name: "Ada", Email: "ADA@example.com"}
		if err := users.Save(ctx, u); err != nil {
			log.Fatal(err)
		}

		log.Println("saved", u.ID, u.Email)
	}
*/
package graft
