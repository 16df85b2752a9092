package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/egobogo/semroute/internal/server"
	"github.com/egobogo/semroute/internal/similarity"
)

func newRoutesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the loaded routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			r, err := newRouter(cmd.Context(), cfg, opts.logger(), nil)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTHRESHOLD\tUTTERANCES\tHANDLER\tDEFAULT")
			for _, s := range r.Routes() {
				fmt.Fprintf(w, "%s\t%.3f\t%d\t%s\t%t\n", s.Name, s.ScoreThreshold, s.Utterances, s.Handler, s.Default)
			}
			return w.Flush()
		},
	}
}

func newRouteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "route <query>",
		Short: "Select the route for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			r, err := newRouter(cmd.Context(), cfg, opts.logger(), nil)
			if err != nil {
				return err
			}
			result, err := r.Route(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Route == nil {
				fmt.Fprintln(out, "No route selected: the store is empty")
				return nil
			}
			fmt.Fprintf(out, "Route: %s\n", result.Name())
			fmt.Fprintf(out, "Score: %f\n", result.Score)
			fmt.Fprintf(out, "Fallback: %t\n", result.Fallback)
			return nil
		},
	}
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <query>",
		Short: "Route a query and print the handler's reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			r, err := newRouter(cmd.Context(), cfg, opts.logger(), nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			streamed := false
			resp, err := r.Dispatch(cmd.Context(), strings.Join(args, " "), func(chunk string) error {
				streamed = true
				_, err := fmt.Fprint(out, chunk)
				return err
			})
			if err != nil {
				return err
			}
			if streamed {
				fmt.Fprintln(out)
			} else {
				fmt.Fprintln(out, resp.Reply.Text)
			}
			return nil
		},
	}
}

func newSimilarityCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "similarity <a> <b>",
		Short: "Print the cosine similarity of two sentences",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			provider, err := newProvider(cfg)
			if err != nil {
				return err
			}

			a, err := provider.Embed(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to compute embedding for first sentence: %w", err)
			}
			b, err := provider.Embed(cmd.Context(), args[1])
			if err != nil {
				return fmt.Errorf("failed to compute embedding for second sentence: %w", err)
			}
			sim, err := similarity.Cosine(a, b)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cosine similarity: %f\n", sim)
			fmt.Fprintf(out, "Cosine distance: %f\n", 1-sim)
			return nil
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the routing API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := opts.logger()
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			r, err := newRouter(cmd.Context(), cfg, logger, reg)
			if err != nil {
				return err
			}

			srv := &server.Server{
				Addr:     addr,
				Router:   r,
				Logger:   logger.With().Str("component", "server").Logger(),
				Gatherer: reg,
			}
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
