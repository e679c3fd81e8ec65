package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Ratio1/graph_sdk_go/pkg/store"
)

func newStoreCmd(a *app) *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Manage namespaced store items",
	}

	put := &cobra.Command{
		Use:   "put",
		Short: "Create or replace an item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, _ := cmd.Flags().GetString("ns")
			id, _ := cmd.Flags().GetString("id")
			data, _ := cmd.Flags().GetString("data")
			rawMeta, _ := cmd.Flags().GetString("meta")

			meta, err := parseJSONObject("meta", rawMeta)
			if err != nil {
				return err
			}
			item, err := a.clients.Store.CreateItem(cmd.Context(), store.ItemCreate{
				Namespace: splitNamespace(ns),
				ID:        id,
				Data:      parseJSONValue(data),
				Metadata:  meta,
			})
			if err != nil {
				return err
			}
			return a.print(cmd, item, func(w io.Writer) { writeItem(w, *item) })
		},
	}
	put.Flags().StringP("ns", "n", "", "Namespace, segments separated by dots")
	put.Flags().String("id", "", "Item id (required)")
	put.Flags().StringP("data", "d", "null", "Item data; JSON, or a plain string")
	put.Flags().String("meta", "", "Metadata as a JSON object")
	put.MarkFlagRequired("id")

	get := &cobra.Command{
		Use:   "get",
		Short: "Fetch one item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, _ := cmd.Flags().GetString("ns")
			id, _ := cmd.Flags().GetString("id")
			item, err := a.clients.Store.GetItem(cmd.Context(), splitNamespace(ns), id)
			if err != nil {
				return err
			}
			return a.print(cmd, item, func(w io.Writer) { writeItem(w, *item) })
		},
	}
	get.Flags().StringP("ns", "n", "", "Namespace, segments separated by dots")
	get.Flags().String("id", "", "Item id (required)")
	get.MarkFlagRequired("id")

	search := &cobra.Command{
		Use:   "search",
		Short: "Search items under a namespace prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, _ := cmd.Flags().GetString("ns")
			rawMeta, _ := cmd.Flags().GetString("meta")
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")

			meta, err := parseJSONObject("meta", rawMeta)
			if err != nil {
				return err
			}
			items, err := a.clients.Store.SearchItems(cmd.Context(), store.ItemSearch{
				Namespace: splitNamespace(ns),
				Metadata:  meta,
				Limit:     limit,
				Offset:    offset,
			})
			if err != nil {
				return err
			}
			return a.print(cmd, items, func(w io.Writer) {
				for _, item := range items {
					writeItem(w, item)
				}
			})
		},
	}
	search.Flags().StringP("ns", "n", "", "Namespace prefix, segments separated by dots")
	search.Flags().String("meta", "", "Metadata filter as a JSON object")
	search.Flags().IntP("limit", "l", 0, "Max items (0 = service default)")
	search.Flags().Int("offset", 0, "Items to skip")

	rm := &cobra.Command{
		Use:   "rm",
		Short: "Delete an item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, _ := cmd.Flags().GetString("ns")
			id, _ := cmd.Flags().GetString("id")
			if err := a.clients.Store.DeleteItem(cmd.Context(), splitNamespace(ns), id); err != nil {
				return err
			}
			return a.done(cmd, fmt.Sprintf("deleted %s", id))
		},
	}
	rm.Flags().StringP("ns", "n", "", "Namespace, segments separated by dots")
	rm.Flags().String("id", "", "Item id (required)")
	rm.MarkFlagRequired("id")

	ns := &cobra.Command{
		Use:   "ns",
		Short: "List namespaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			namespaces, err := a.clients.Store.ListNamespaces(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd, namespaces, func(w io.Writer) {
				for _, n := range namespaces {
					keyColor.Fprintln(w, n)
				}
			})
		},
	}

	storeCmd.AddCommand(put, get, search, rm, ns)
	return storeCmd
}
