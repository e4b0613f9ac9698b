package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inventory/internal/catalog"
	"inventory/internal/client"
	"inventory/internal/config"
	"inventory/internal/events"
	"inventory/internal/metrics"
	"inventory/internal/server"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "inventory",
		Short:         "Inventory REST backend for products, customers and purchases",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), envFile)
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file to load")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), envFile)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Insert the seeded accounts and demo products into the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return seed(cmd.Context(), envFile)
		},
	})
	cmd.AddCommand(productsCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "inventory version %s\n", Version)
		},
	})
	return cmd
}

func productsCmd() *cobra.Command {
	var (
		apiURL   string
		token    string
		email    string
		password string
		q        catalog.Query
		sortKey  string
	)
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List products from a running API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := client.New(apiURL, token, client.Options{})
			if token == "" && email != "" {
				t, err := c.Login(ctx, email, password)
				if err != nil {
					return fmt.Errorf("login: %w", err)
				}
				c = c.WithToken(t)
			}
			q.Sort = catalog.ParseSort(sortKey)
			products, err := c.ListProducts(ctx, q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range products {
				fmt.Fprintf(out, "%-36s  %-12s  %10.2f  %6d  %s\n", p.ID, p.Category, p.Price, p.Stock, p.Name)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&apiURL, "api", "http://localhost:5000", "API base URL")
	f.StringVar(&token, "token", "", "Bearer token")
	f.StringVar(&email, "email", "", "Log in with this account when no token is given")
	f.StringVar(&password, "password", "", "Password for --email")
	f.StringVar(&q.Category, "category", "", "Category filter (All for none)")
	f.StringVar(&q.Search, "search", "", "Case-insensitive text search")
	f.StringVar(&sortKey, "sort", string(catalog.SortNewest), "newest, name, price-asc or price-desc")
	return cmd
}

func serve(parent context.Context, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := server.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}()

	productCache, closeCache := server.OpenCache(ctx, cfg)
	defer closeCache()

	m := metrics.New()
	monitor := events.NewLowStockMonitor(cfg.LowStockThreshold)
	publisher, err := server.OpenEvents(ctx, cfg, monitor, m)
	if err != nil {
		return fmt.Errorf("events: %w", err)
	}
	defer publisher.Close()

	srv := server.New(cfg, server.Deps{Store: store, Cache: productCache, Publisher: publisher, Metrics: m})
	if err := srv.Auth.SeedAccounts(ctx, cfg.Accounts); err != nil {
		return err
	}
	if cfg.SeedDemo {
		seedProducts(ctx, srv.Products)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on port %s", cfg.AppPort)
		errCh <- srv.App.Listen(cfg.AppPort)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	if err := srv.App.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
	return nil
}

func seed(ctx context.Context, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := server.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	srv := server.New(cfg, server.Deps{Store: store})
	if err := srv.Auth.SeedAccounts(ctx, cfg.Accounts); err != nil {
		return err
	}
	seedProducts(ctx, srv.Products)
	return nil
}
