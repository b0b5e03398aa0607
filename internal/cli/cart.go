package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fabricstore/storefront/pkg/cart"
)

func (rt *runtime) cartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change the cart of the signed-in user",
	}
	cmd.AddCommand(rt.cartShowCommand(), rt.cartAddCommand(), rt.cartRemoveCommand())
	return cmd
}

func (rt *runtime) requireSignIn() error {
	if !rt.signedIn() {
		return cart.ErrNotAuthenticated
	}
	return nil
}

func (rt *runtime) cartShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List cart lines and the subtotal",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.requireSignIn(); err != nil {
				return err
			}
			snap := rt.app.Cart.Snapshot()
			if snap.Err != nil {
				return snap.Err
			}
			if len(snap.Lines) == 0 {
				rt.printer.Info("Your cart is empty")
				return nil
			}
			return rt.renderCart(snap)
		},
	}
}

func (rt *runtime) renderCart(snap cart.Snapshot) error {
	t := rt.printer.Table("Product", "Name", "Size", "Color", "Qty", "Price", "Total")
	for _, l := range snap.Lines {
		t.AddRow(
			l.Product.ID,
			l.Name(),
			dash(l.SelectedSize),
			dash(l.SelectedColor),
			strconv.Itoa(l.Quantity),
			rt.money.Format(l.PriceSnapshot),
			rt.money.Format(l.Total()),
		)
	}
	if err := t.Render(); err != nil {
		return err
	}
	rt.printer.Print("")
	rt.printer.Print("%s %d  %s %s",
		rt.printer.Bold("Items:"), snap.Count,
		rt.printer.Bold("Subtotal:"), rt.money.Format(snap.Subtotal))
	return nil
}

func (rt *runtime) cartAddCommand() *cobra.Command {
	var (
		qty         int
		size, color string
	)
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product variant to the cart",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.requireSignIn(); err != nil {
				return err
			}
			productID := args[0]
			if err := rt.app.Cart.AddOrIncrement(cmd.Context(), productID, qty, size, color); err != nil {
				return err
			}
			rt.printer.Success("Added %d x %s (now %d in cart)",
				qty, productID, rt.app.Cart.LineQuantityForVariant(productID, size, color))
			rt.warnStaleCart()
			return nil
		},
	}
	cmd.Flags().IntVar(&qty, "qty", 1, "quantity to add")
	cmd.Flags().StringVar(&size, "size", "", "selected size")
	cmd.Flags().StringVar(&color, "color", "", "selected color")
	return cmd
}

func (rt *runtime) cartRemoveCommand() *cobra.Command {
	var size, color string
	cmd := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove one unit of a product variant",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.requireSignIn(); err != nil {
				return err
			}
			productID := args[0]
			if err := rt.app.Cart.Decrement(cmd.Context(), productID, size, color); err != nil {
				return err
			}
			rt.printer.Success("Removed one %s (%d left)",
				productID, rt.app.Cart.LineQuantityForVariant(productID, size, color))
			rt.warnStaleCart()
			return nil
		},
	}
	cmd.Flags().StringVar(&size, "size", "", "selected size")
	cmd.Flags().StringVar(&color, "color", "", "selected color")
	return cmd
}

// warnStaleCart reports a refresh that failed after a successful mutation.
func (rt *runtime) warnStaleCart() {
	if err := rt.app.Cart.Err(); err != nil {
		rt.printer.Warning("Cart may be out of date: %s", cart.Message(err))
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
