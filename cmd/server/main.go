package main

import (
	"videotube/internal/logging"
	"videotube/internal/transport/http"
)

func main() {
	if err := http.Run(); err != nil {
		logging.Fatal().Err(err).Msg("Server failed")
	}
}
