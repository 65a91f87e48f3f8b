// Package cli provides the cobra commands of the verflow binary.
package cli

import (
	gocontext "context"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/verflow/internal/ctxutil"
	"github.com/example/verflow/internal/wire"
)

// globalActorID stores the actor for the current CLI invocation.
// Set once at startup by DetectAndStoreActor().
var globalActorID string

// DetectAndStoreActor picks the actor from --actor, then VERFLOW_ACTOR, then $USER.
// Should be called once at CLI startup in PersistentPreRun.
func DetectAndStoreActor(cmd *cobra.Command) {
	if actor, _ := cmd.Flags().GetString("actor"); actor != "" {
		globalActorID = actor
		return
	}
	if actor := os.Getenv("VERFLOW_ACTOR"); actor != "" {
		globalActorID = actor
		return
	}
	globalActorID = os.Getenv("USER")
}

// GetActorID returns the stored actor ID from CLI startup.
func GetActorID() string {
	return globalActorID
}

// NewContext creates a context.Background() with the current actor ID embedded.
// CLI commands should use this instead of context.Background() directly.
func NewContext() gocontext.Context {
	ctx := gocontext.Background()
	if globalActorID != "" {
		return ctxutil.WithActorID(ctx, globalActorID)
	}
	return ctx
}

// userFlag returns --user, falling back to the invocation's actor.
func userFlag(cmd *cobra.Command) string {
	user, _ := cmd.Flags().GetString("user")
	return ctxutil.ActorOr(NewContext(), user)
}

// Bootstrap applies the persistent flags before any command runs.
func Bootstrap(cmd *cobra.Command, args []string) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		wire.SetConfigPath(path)
	}
	DetectAndStoreActor(cmd)
}
