package cli

import (
	"fmt"
	"strconv"

	"github.com/cienspay/cienspay-web/apiclient"
	"github.com/cienspay/cienspay-web/card"
	"github.com/spf13/cobra"
)

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator commands",
	}
	cmd.AddCommand(newAdminUsersCmd(a))
	return cmd
}

func newAdminUsersCmd(a *app) *cobra.Command {
	var params apiclient.ListUsersParams

	cmd := &cobra.Command{
		Use:     "users",
		Short:   "List users with their cards",
		Example: "  cienspay admin users --search ana --page 1 --page-size 20",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager()
			if err != nil {
				return err
			}
			if err := requireLogin(m); err != nil {
				return err
			}
			api, err := a.api()
			if err != nil {
				return err
			}

			page, err := api.ListUsersWithCards(cmd.Context(), m, params)
			if err != nil {
				return fmt.Errorf("listing users: %w", err)
			}

			rows := make([][]string, 0, len(page.Users))
			for _, u := range page.Users {
				var cards, balance string
				var total int64
				for i, c := range u.Cards {
					if i > 0 {
						cards += " "
					}
					cards += card.Mask(c.Number)
					total += c.Balance
				}
				if len(u.Cards) > 0 {
					balance = strconv.FormatInt(total, 10)
				}
				rows = append(rows, []string{
					strconv.FormatInt(u.ID, 10),
					u.FullName,
					u.Email,
					u.DocumentType + "-" + u.DocumentNumber,
					u.Status,
					cards,
					balance,
				})
			}

			w := cmd.OutOrStdout()
			if err := renderTable(w, []string{"ID", "Name", "Email", "Document", "Status", "Cards", "Balance"}, rows); err != nil {
				return err
			}
			fmt.Fprintf(w, "Page %d of %d (%d users)\n", max(page.Page, 1), page.Pages(), page.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Search, "search", "", "filter by name, document or email")
	cmd.Flags().StringVar(&params.Status, "status", "", "filter by status (active, inactive)")
	cmd.Flags().IntVar(&params.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&params.PageSize, "page-size", 10, "users per page (max 100)")
	return cmd
}

func newCardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Card helpers",
	}
	cmd.AddCommand(newCardPreviewCmd())
	return cmd
}

func newCardPreviewCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print sample CiensPay card numbers",
		Long:  "Print display-only card numbers with the CiensPay BIN and a valid check digit. They are not issued cards.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			for range count {
				fmt.Fprintln(cmd.OutOrStdout(), card.Format(card.PreviewNumber(nil)))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "how many numbers to print")
	return cmd
}
