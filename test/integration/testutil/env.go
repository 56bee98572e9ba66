package testutil

import (
	"os"
	"testing"
)

// TestEnv points the suite at a running service and its mongo store.
type TestEnv struct {
	MongoURI     string
	DatabaseName string
	ServerURL    string
}

func NewTestEnv() *TestEnv {
	return &TestEnv{
		MongoURI:     getEnv("TEST_MONGO_URI", DefaultMongoURI),
		DatabaseName: getEnv("TEST_DB_NAME", DefaultDatabaseName),
		ServerURL:    getEnv("TEST_SERVER_URL", "http://localhost:8080"),
	}
}

func (e *TestEnv) Setup(t *testing.T, collections ...string) (*MongoHelper, *Client) {
	t.Helper()

	mongo := NewMongoHelper(t, e.MongoURI, e.DatabaseName)
	for _, name := range collections {
		mongo.CleanCollection(t, name)
	}

	client := NewClient(e.ServerURL)
	client.WaitForHealthy(t, DefaultHealthCheckTimeout)

	return mongo, client
}

func (e *TestEnv) Cleanup(t *testing.T, mongo *MongoHelper, collections ...string) {
	t.Helper()

	if mongo != nil {
		for _, name := range collections {
			mongo.CleanCollection(t, name)
		}
		mongo.Close(t)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
