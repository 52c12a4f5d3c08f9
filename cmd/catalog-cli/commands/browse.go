package commands

import (
	"fmt"
	"strings"

	"github.com/maltedev/storefront-scraper/internal/parser"
	"github.com/spf13/cobra"
)

var flagPage int

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the brand tree from the storefront sidebar",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(cmd, func(c Catalog) error {
			categories := c.ListCategories(cmd.Context())
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), categories)
			}
			renderCategories(cmd.OutOrStdout(), categories)
			return nil
		})
	},
}

var categoryCmd = &cobra.Command{
	Use:   "category <path>",
	Short: "List the products of one category page",
	Example: `  catalog-cli category /Chaussures-Homme-c100.html
  catalog-cli category /Nike-c1.html --page 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := parser.PathOnly(args[0])
		return withCatalog(cmd, func(c Catalog) error {
			listing := c.ListCategoryProducts(cmd.Context(), path, flagPage)
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), listing)
			}
			renderProducts(cmd.OutOrStdout(), listing.Products)
			renderPaging(cmd.OutOrStdout(), listing.Paging)
			return nil
		})
	},
}

var productCmd = &cobra.Command{
	Use:   "product <path>",
	Short: "Show one product page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := parser.PathOnly(args[0])
		return withCatalog(cmd, func(c Catalog) error {
			detail := c.GetProductPage(cmd.Context(), path, flagPage)
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), detail)
			}
			if detail.Empty() {
				return fmt.Errorf("no product found at %s", path)
			}
			if detail.IsCategory {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is a category: %s\n", path, detail.CategoryTitle)
				renderProducts(cmd.OutOrStdout(), detail.Products)
				return nil
			}
			renderDetail(cmd.OutOrStdout(), detail)
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search product names across the main listings",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withCatalog(cmd, func(c Catalog) error {
			products := c.Search(cmd.Context(), query)
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), products)
			}
			renderProducts(cmd.OutOrStdout(), products)
			return nil
		})
	},
}

var homeCmd = &cobra.Command{
	Use:   "home [gender]",
	Short: "Show the landing page selection (all, homme, femme or enfant)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gender := "all"
		if len(args) == 1 {
			gender = args[0]
		}
		return withCatalog(cmd, func(c Catalog) error {
			products := c.HomeProducts(cmd.Context(), gender)
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), products)
			}
			renderProducts(cmd.OutOrStdout(), products)
			return nil
		})
	},
}

var sectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "List the quick links of each audience landing page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(cmd, func(c Catalog) error {
			sections := c.GenderSections(cmd.Context())
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), sections)
			}
			renderSections(cmd.OutOrStdout(), sections)
			return nil
		})
	},
}

func init() {
	categoryCmd.Flags().IntVarP(&flagPage, "page", "p", 1, "Page number")
	productCmd.Flags().IntVarP(&flagPage, "page", "p", 1, "Page number when the path is a category")

	rootCmd.AddCommand(categoriesCmd, categoryCmd, productCmd, searchCmd, homeCmd, sectionsCmd)
}
