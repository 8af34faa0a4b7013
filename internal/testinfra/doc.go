// Package testinfra starts the external services that integration tests run
// against.
//
// Postgres runs in a container managed by testcontainers-go:
//
//	func TestLessons(t *testing.T) {
//	    db := testinfra.NewPostgres(t, []database.Migration{
//	        {Name: "lessons", SQL: catalog.Schema},
//	    })
//	    src := catalog.NewPostgresSource(db.Pool)
//	    // ...
//	}
//
// Redis is expected to be running already (GUITAR_TEST_REDIS_URL, default
// redis://localhost:6379/15). Both helpers skip the test when the service is
// unavailable and register their own cleanup.
package testinfra
