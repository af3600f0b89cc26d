package log

import (
	"os"

	"github.com/hivereader/hivereader/utils/dotenv"
	"github.com/hivereader/hivereader/utils/flag"
	"github.com/sirupsen/logrus"
)

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// This init function is only for testing cases, where the entry point is not
// main function. Unit test will fail with nil pointer dereference if we don't
// init here.
func init() {
	InitLogger()
}

func InitLogger() {
	logger = logrus.New()

	// JSON in production for log ingestion, plain text to stderr in
	// development for better readability
	if os.Getenv("HIVEREADER_ENV") == dotenv.ProdEnv {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.SetOutput(os.Stderr)

	Log = logger.WithFields(
		logrus.Fields{"service": *flag.ServiceName, "is_development": os.Getenv("HIVEREADER_ENV") != dotenv.ProdEnv},
	)
}
