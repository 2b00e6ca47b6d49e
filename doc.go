// Package herald hosts a Discord interactions endpoint and keeps the
// application's registered commands in sync with the handlers it serves.
//
// Herald is a library, not a service. Import it into your application to get:
//   - Ed25519 verification of every inbound request before it is parsed
//   - Validated, immutable command and component handler indexes
//   - A dispatcher that turns each request into exactly one handler call
//     and one synchronous response, with deferred work started afterwards
//   - A sync engine that reconciles registered commands with the fewest
//     platform calls, paced to stay under the rate limit
//
// Quick start:
//
//	h, err := herald.New(
//	    herald.WithPublicKey(os.Getenv("DISCORD_PUBLIC_KEY")),
//	    herald.WithCommands(handler.Command{
//	        Spec: command.Spec{Name: "ping", Description: "Replies with pong"},
//	        Execute: func(ctx context.Context, c *handler.CommandContext) (*interaction.Response, error) {
//	            return c.Respond(interaction.Reply("pong"))
//	        },
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	http.Handle("/", api.NewHandler(h, slog.Default()))
//
//	s := registry.New(rest.NewClient())
//	h.SyncCommands(ctx, s, registry.Credentials{ClientID: id, ClientSecret: secret}, "")
package herald
