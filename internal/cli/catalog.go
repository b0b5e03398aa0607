package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fabricstore/storefront/pkg/catalog"
)

func (rt *runtime) catalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse product collections",
	}
	cmd.AddCommand(rt.catalogListCommand(), rt.catalogShowCommand(), rt.catalogExistsCommand())
	return cmd
}

func (rt *runtime) catalogListCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "list <collection>",
		Short:     "List the products of a collection",
		Args:      exactArgs(1),
		ValidArgs: collectionNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := catalog.ParseCollection(args[0])
			if err != nil {
				return err
			}
			products, err := rt.app.Catalog.List(cmd.Context(), col)
			if err != nil {
				return err
			}
			if len(products) == 0 {
				rt.printer.Info("No products in %s", col)
				return nil
			}

			t := rt.printer.Table("ID", "Name", "Price", "Off", "Category")
			for _, p := range products {
				off := "-"
				if d := p.Discount(); d > 0 {
					off = strconv.Itoa(d) + "%"
				}
				t.AddRow(p.ID, p.Name, rt.money.Format(p.Price), off, dash(p.Category))
			}
			return t.Render()
		},
	}
}

func (rt *runtime) catalogShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <collection> <id>",
		Short: "Show one product",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := catalog.ParseCollection(args[0])
			if err != nil {
				return err
			}
			p, err := rt.app.Catalog.Get(cmd.Context(), col, args[1])
			if err != nil {
				return err
			}

			rt.printer.Header(p.Name)
			price := rt.money.Format(p.Price)
			if d := p.Discount(); d > 0 {
				price += rt.printer.Dim(" (was " + rt.money.Format(p.OriginalPrice) + ", " + strconv.Itoa(d) + "% off)")
			}
			rt.printer.Print("Price:    %s", price)
			if p.Category != "" {
				rt.printer.Print("Category: %s", p.Category)
			}
			if len(p.Sizes) > 0 {
				rt.printer.Print("Sizes:    %s", strings.Join(p.Sizes, ", "))
			}
			if len(p.Colors) > 0 {
				rt.printer.Print("Colors:   %s", strings.Join(p.Colors, ", "))
			}
			if p.Material != "" {
				rt.printer.Print("Material: %s", p.Material)
			}
			if cover := p.Cover(); cover != "" {
				rt.printer.Print("Image:    %s", rt.printer.Dim(cover))
			}
			if p.Description != "" {
				rt.printer.Print("")
				rt.printer.Print("%s", p.Description)
			}
			if rt.signedIn() {
				if n := rt.app.Cart.LineQuantityFor(p.ID); n > 0 {
					rt.printer.Info("%d in your cart", n)
				}
			}
			return nil
		},
	}
}

func (rt *runtime) catalogExistsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <collection> <name>",
		Short: "Check whether a product name is taken",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := catalog.ParseCollection(args[0])
			if err != nil {
				return err
			}
			exists, err := rt.app.Catalog.NameExists(cmd.Context(), col, args[1])
			if err != nil {
				return err
			}
			if exists {
				rt.printer.Print("%q exists in %s", args[1], col)
			} else {
				rt.printer.Print("%q is available in %s", args[1], col)
			}
			return nil
		},
	}
}

func collectionNames() []string {
	names := make([]string, 0, len(catalog.Collections))
	for _, c := range catalog.Collections {
		names = append(names, string(c))
	}
	return names
}
