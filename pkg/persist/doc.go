// Package persist mirrors reactive stores into storages.
//
// A Persister carries the configuration every Persist call needs: the
// serializer, the storage factory for browser-style backends and the logger.
// Several persisters can coexist (tests, separate tenants) because nothing is
// process-wide.
//
//	p := persist.New(persist.WithEnvironment(host.Browser()))
//	prefs, err := persist.LocalWritable(p, "prefs", Prefs{Theme: "light"}, nil)
//	if err != nil {
//		return err
//	}
//	defer prefs.Close()
//	prefs.Set(Prefs{Theme: "dark"}) // written to local storage
package persist
