package main

import (
	"context"

	_ "github.com/benthosdev/benthos/v4/public/components/io"
	_ "github.com/benthosdev/benthos/v4/public/components/pure"
	_ "github.com/benthosdev/benthos/v4/public/components/pure/extended"
	"github.com/benthosdev/benthos/v4/public/service"
	_ "github.com/shono-io/arangosh/bloblang"
	_ "github.com/shono-io/arangosh/components/cache"
	_ "github.com/shono-io/arangosh/components/changed"
	_ "github.com/shono-io/arangosh/components/query"
	_ "github.com/shono-io/arangosh/components/storage"
)

func main() {
	service.RunCLI(context.Background())
}
