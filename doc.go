// Package confer provides a typed, sectioned configuration store backed by
// a TOML document, and a schema-driven engine that keeps plain Go structs
// in sync with one section of it.
//
// # Architecture
//
// A Store owns the document. Each record type maps to a single section:
//
//	┌──────────────────────────────┐
//	│  Shared[T] records           │  ← guarded by their own RWMutex
//	├──────────────────────────────┤
//	│  Module[T] (load / save)     │  ← Schema built from struct tags
//	├──────────────────────────────┤
//	│  Store                       │  ← one RWMutex over the document
//	├──────────────────────────────┤
//	│  TOML / YAML file            │  ← atomic replace on save
//	└──────────────────────────────┘
//
// # Sub-packages
//
//   - notify: change notification for store mutations and reloads
//   - watcher: reload a store when its file changes on disk
//   - metrics: Prometheus instrumentation implementing Recorder
//
// # Basic Usage
//
// Declare a record and sync it with the store:
//
//	type App struct {
//	    Port   uint16 `default:"8080"`
//	    Host   string `default:"localhost"`
//	    Banner *string
//	    Cache  []byte  `confer:"-"`
//	}
//
//	store, err := confer.FromFile("app.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mod := confer.MustModule[App]()
//	app, err := mod.FromStore(ctx, store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	app.Write(func(a *App) { a.Port = 9090 })
//	if err := mod.Save(ctx, app, store); err != nil {
//	    log.Fatal(err)
//	}
//	err = store.SaveFile("app.toml")
//
// Save deletes every key in the section that App does not declare.
//
// # Direct Access
//
// The store can also be used without a schema:
//
//	port, err := confer.GetInt[uint16](store, "App", "Port")
//	if errors.Is(err, confer.ErrMissingKey) {
//	    // use a fallback
//	}
//	err = store.SetStringSlice("App", "Tags", []string{"a", "b"})
//
// # Consistency
//
// Every Store method is atomic on its own. Module.Load and Module.Save
// touch one field at a time and never roll back, so a failure or a
// cancelled context leaves the fields handled so far in place.
package confer
