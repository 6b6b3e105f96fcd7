package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/storefront/internal/auth"
	"github.com/mmeshcher/storefront/internal/checkout"
	"github.com/mmeshcher/storefront/internal/contact"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/orders"
	"github.com/mmeshcher/storefront/internal/session"
)

func (c *cli) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
}

func (c *cli) money(a model.Amount) string {
	return model.FormatAmount(c.app.Config.Currency, a)
}

func (c *cli) productsCommand() *cobra.Command {
	var latest bool
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List catalogue products, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			products := c.app.Catalogue.Products()
			if latest {
				products = c.app.Catalogue.Latest()
			}
			tw := c.table()
			fmt.Fprintln(tw, "ID\tNAME\tPRICE")
			for _, p := range products {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, c.money(p.Price))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "show only the latest arrivals")
	return cmd
}

func (c *cli) cartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.printCart()
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add PRODUCT_ID",
			Short: "Add one unit of a product",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.app.Cart.Add(cmd.Context(), args[0]); err != nil {
					return err
				}
				return c.printCart()
			},
		},
		&cobra.Command{
			Use:   "set PRODUCT_ID QUANTITY",
			Short: "Set the quantity of a product; 0 removes it",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				q, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid quantity %q: %w", args[1], err)
				}
				if err := c.app.Cart.SetQuantity(cmd.Context(), args[0], q); err != nil {
					return err
				}
				return c.printCart()
			},
		},
		&cobra.Command{
			Use:   "remove PRODUCT_ID",
			Short: "Remove a product from the cart",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.app.Cart.Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
				return c.printCart()
			},
		},
	)
	return cmd
}

func (c *cli) printCart() error {
	if !c.app.Session.Authenticated() {
		return session.ErrUnauthenticated
	}

	tw := c.table()
	fmt.Fprintln(tw, "ID\tQTY\tPRICE\tTOTAL")
	for _, l := range c.app.Cart.Lines(c.app.Catalogue) {
		if !l.Known {
			fmt.Fprintf(tw, "%s\t%d\t-\t-\n", l.ProductID, l.Quantity)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", l.ProductID, l.Quantity, c.money(l.Price), c.money(l.Total))
	}
	s := c.app.CartSummary()
	fmt.Fprintf(tw, "\t\tSubtotal\t%s\n", s.Display.Subtotal)
	fmt.Fprintf(tw, "\t\tDelivery\t%s\n", s.Display.DeliveryFee)
	fmt.Fprintf(tw, "\t\tTotal\t%s\n", s.Display.Total)
	return tw.Flush()
}

func (c *cli) loginCommand() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login IDENTIFIER",
		Short: "Sign in with email or phone and password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = c.prompt("Password"); err != nil {
					return err
				}
			}
			return c.app.Auth.Login(cmd.Context(), args[0], password)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.app.Session.SignOut(cmd.Context())
			return nil
		},
	}
}

// verifyPhone проводит отправку и проверку кода в одном процессе.
func (c *cli) verifyPhone(cmd *cobra.Command, mode auth.Mode, phone string) error {
	c.app.Auth.Begin(mode)
	if err := c.app.Auth.SendOTP(cmd.Context(), phone); err != nil {
		return err
	}
	code, err := c.prompt("OTP")
	if err != nil {
		return err
	}
	return c.app.Auth.VerifyOTP(cmd.Context(), phone, code)
}

func (c *cli) registerCommand() *cobra.Command {
	var p session.Profile
	cmd := &cobra.Command{
		Use:   "register PHONE",
		Short: "Create an account after verifying the phone with an OTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.verifyPhone(cmd, auth.ModeRegister, args[0]); err != nil {
				return err
			}
			return c.app.Auth.Register(cmd.Context(), p, args[0])
		},
	}
	cmd.Flags().StringVar(&p.Name, "name", "", "full name")
	cmd.Flags().StringVar(&p.Email, "email", "", "email address")
	cmd.Flags().StringVar(&p.Password, "password", "", "password")
	return cmd
}

func (c *cli) resetPasswordCommand() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "reset-password PHONE",
		Short: "Set a new password after verifying the phone with an OTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.verifyPhone(cmd, auth.ModeReset, args[0]); err != nil {
				return err
			}
			return c.app.Auth.ResetPassword(cmd.Context(), args[0], password)
		},
	}
	cmd.Flags().StringVar(&password, "new-password", "", "new password")
	return cmd
}

func (c *cli) profileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := c.app.Session.Profile(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(c.out)
			enc.SetIndent("", "  ")
			return enc.Encode(user)
		},
	}
}

func (c *cli) ordersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List past order items, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := c.app.Orders.Load(cmd.Context())
			if err != nil {
				return err
			}
			tw := c.table()
			fmt.Fprintln(tw, "DATE\tITEM\tQTY\tPRICE\tSTATUS\tPAYMENT")
			for _, it := range items {
				paid := "pending"
				if it.Payment {
					paid = "paid"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s (%s)\t%s, %s\n",
					it.Date, it.Name, it.Quantity, c.money(it.Price),
					it.Status, orders.StatusTone(it.Status), it.PaymentMethod, paid)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) checkoutCommand() *cobra.Command {
	var (
		method      string
		addressFile string
	)
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the current cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(addressFile)
			if err != nil {
				return fmt.Errorf("read address: %w", err)
			}
			var addr model.Address
			if err := json.Unmarshal(raw, &addr); err != nil {
				return fmt.Errorf("parse address: %w", err)
			}

			if err := c.app.Checkout.Submit(cmd.Context(), checkout.Request{Address: addr, Method: method}); err != nil {
				return err
			}
			return c.completePayment()
		},
	}
	cmd.Flags().StringVar(&method, "method", string(model.PaymentCOD), "payment method: cod or gateway")
	cmd.Flags().StringVar(&addressFile, "address", "address.json", "JSON file with the delivery address")
	return cmd
}

// completePayment показывает параметры окна оплаты и передаёт ответ шлюза.
// Пустой идентификатор платежа означает отказ от оплаты.
func (c *cli) completePayment() error {
	d, ok := c.app.Gateway.(*checkout.Deferred)
	if !ok {
		return nil
	}
	opts, open := d.Pending()
	if !open {
		return nil
	}

	fmt.Fprintf(c.out, "Gateway order %s: %s %d (key %s)\n", opts.OrderID, opts.Currency, opts.Amount, opts.Key)
	paymentID, err := c.prompt("Payment ID (empty to cancel)")
	if err != nil {
		return err
	}
	if paymentID == "" {
		return d.Dismiss()
	}
	signature, err := c.prompt("Signature")
	if err != nil {
		return err
	}
	return d.Complete(checkout.PaymentResult{OrderID: opts.OrderID, PaymentID: paymentID, Signature: signature})
}

func (c *cli) subscribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe EMAIL",
		Short: "Subscribe to the newsletter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Contact.Subscribe(cmd.Context(), args[0])
		},
	}
}

func (c *cli) contactCommand() *cobra.Command {
	var m contact.Message
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Send a message through the contact form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Contact.SubmitContactForm(cmd.Context(), m)
		},
	}
	cmd.Flags().StringVar(&m.Name, "name", "", "your name")
	cmd.Flags().StringVar(&m.Email, "email", "", "your email")
	cmd.Flags().StringVar(&m.Phone, "phone", "", "your phone")
	cmd.Flags().StringVar(&m.Subject, "subject", "", "subject")
	cmd.Flags().StringVar(&m.Message, "message", "", "message")
	return cmd
}
