package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ArtemZhigarev/woo-lister/internal/view"
	"github.com/ArtemZhigarev/woo-lister/pkg/credentials"
	"github.com/ArtemZhigarev/woo-lister/pkg/pagination"
	"github.com/ArtemZhigarev/woo-lister/pkg/woo"
	"github.com/spf13/cobra"
)

func newOrdersCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:         "orders",
		Short:       "List orders, newest first",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{quietLogs: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			provider, release, err := a.provider(ctx)
			if err != nil {
				return err
			}
			defer release()

			c, err := a.newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			loader, err := woo.NewOrdersLoader(provider, c, pagination.Config[woo.Order]{
				OnChange: loadingLine[woo.Order](a.out),
			})
			if err != nil {
				return err
			}
			defer loader.Close()

			return browse(ctx, a.in, a.out, loader, view.OrdersTable(), "", all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Load every page without asking")
	return cmd
}

func newCustomersCmd(a *app) *cobra.Command {
	var (
		email string
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "customers",
		Short: "List customers, optionally filtered by email",
		Example: `  woo-lister customers
  woo-lister customers --email jane@example.com
  woo-lister customers --all`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{quietLogs: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			provider, release, err := a.provider(ctx)
			if err != nil {
				return err
			}
			defer release()

			c, err := a.newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			loader, err := woo.NewCustomersLoader(provider, c, pagination.Config[woo.Customer]{
				OnChange: loadingLine[woo.Customer](a.out),
			})
			if err != nil {
				return err
			}
			defer loader.Close()

			return browse(ctx, a.in, a.out, loader, view.CustomersTable(), email, all)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Only customers with this email address")
	cmd.Flags().BoolVar(&all, "all", false, "Load every page without asking")
	return cmd
}

// errFetchFailed ends a listing whose last fetch failed. The cause has
// already been printed with the table.
var errFetchFailed = errors.New("listing stopped after a failed fetch")

// provider opens the settings backend and wraps it as a credentials provider.
func (a *app) provider(ctx context.Context) (credentials.Provider, func(), error) {
	store, release, err := a.newStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return credentials.NewStoreProvider(store), release, nil
}

// loadingLine prints the loading indicator whenever a fetch starts.
func loadingLine[T any](out io.Writer) func(pagination.State[T]) {
	return func(s pagination.State[T]) {
		if s.Loading {
			fmt.Fprintln(out, view.LoadingMessage)
		}
	}
}

// browse loads the first page for filter and then keeps offering the next one
// while the store has more. With all set it loads every page without asking.
func browse[T any](ctx context.Context, in io.Reader, out io.Writer, loader *pagination.Loader[T, int64], table view.Table[T], filter string, all bool) error {
	reader := bufio.NewReader(in)

	loader.Reset(ctx, filter)
	shown := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s := loader.State()
		if err := table.RenderFrom(out, s, shown); err != nil {
			return err
		}
		shown = len(s.Items)

		if s.Failed() {
			if all || s.Err == credentials.NotConfiguredMessage || !ask(reader, out, "Retry? [y/N] ", false) {
				return errFetchFailed
			}
			loader.Retry(ctx)
			continue
		}

		if !s.HasMore {
			return nil
		}

		if !all && !ask(reader, out, "Load more? [Y/n] ", true) {
			return nil
		}
		loader.LoadMore(ctx)
	}
}
