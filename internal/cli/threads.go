package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Ratio1/graph_sdk_go/pkg/threads"
)

// maxParallelFetch bounds concurrent requests issued by "threads state".
const maxParallelFetch = 8

func newThreadsCmd(a *app) *cobra.Command {
	threadsCmd := &cobra.Command{
		Use:   "threads",
		Short: "Manage conversation threads and their state",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			rawMeta, _ := cmd.Flags().GetString("meta")
			ifExists, _ := cmd.Flags().GetString("if-exists")

			meta, err := parseJSONObject("meta", rawMeta)
			if err != nil {
				return err
			}
			thread, err := a.clients.Threads.Create(cmd.Context(), threads.CreateRequest{
				ThreadID: id,
				Metadata: meta,
				IfExists: threads.IfExists(ifExists),
			})
			if err != nil {
				return err
			}
			return a.print(cmd, thread, func(w io.Writer) { writeThread(w, *thread) })
		},
	}
	create.Flags().String("id", "", "Thread id (default: assigned by the service)")
	create.Flags().String("meta", "", "Metadata as a JSON object")
	create.Flags().String("if-exists", string(threads.IfExistsRaise), "Policy when the id is taken: raise, error or return_existing")

	get := &cobra.Command{
		Use:   "get <thread-id>",
		Short: "Show a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			thread, err := a.clients.Threads.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(cmd, thread, func(w io.Writer) { writeThread(w, *thread) })
		},
	}

	rm := &cobra.Command{
		Use:   "rm <thread-id>",
		Short: "Delete a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.clients.Threads.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.done(cmd, fmt.Sprintf("deleted %s", args[0]))
		},
	}

	search := &cobra.Command{
		Use:   "search",
		Short: "Search threads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rawMeta, _ := cmd.Flags().GetString("meta")
			rawValues, _ := cmd.Flags().GetString("values")
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")

			meta, err := parseJSONObject("meta", rawMeta)
			if err != nil {
				return err
			}
			values, err := parseJSONObject("values", rawValues)
			if err != nil {
				return err
			}
			list, err := a.clients.Threads.Search(cmd.Context(), threads.SearchRequest{
				Metadata: meta,
				Values:   values,
				Status:   status,
				Limit:    limit,
				Offset:   offset,
			})
			if err != nil {
				return err
			}
			return a.print(cmd, list, func(w io.Writer) {
				for _, thread := range list {
					writeThread(w, thread)
				}
			})
		},
	}
	search.Flags().String("meta", "", "Metadata filter as a JSON object")
	search.Flags().String("values", "", "Values filter as a JSON object")
	search.Flags().String("status", "", "Status filter")
	search.Flags().IntP("limit", "l", threads.DefaultLimit, "Max threads")
	search.Flags().Int("offset", 0, "Threads to skip")

	state := &cobra.Command{
		Use:   "state <thread-id>...",
		Short: "Show the current state of one or more threads",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			states := make([]*threads.ThreadState, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(maxParallelFetch)
			for i, id := range args {
				g.Go(func() error {
					st, err := a.clients.Threads.GetState(ctx, id)
					if err != nil {
						return err
					}
					a.logger.Debug("fetched state", zap.String("thread_id", id), zap.String("checkpoint_id", st.CheckpointID()))
					states[i] = st
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			var out any = states
			if len(states) == 1 {
				out = states[0]
			}
			return a.print(cmd, out, func(w io.Writer) {
				for i, st := range states {
					writeState(w, args[i], *st)
				}
			})
		},
	}

	update := &cobra.Command{
		Use:   "update <thread-id>",
		Short: "Write values to a thread's state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawValues, _ := cmd.Flags().GetString("values")
			asNode, _ := cmd.Flags().GetString("as-node")
			checkpointID, _ := cmd.Flags().GetString("checkpoint")

			req := threads.UpdateStateRequest{
				Values: parseJSONValue(rawValues),
				AsNode: asNode,
			}
			if checkpointID != "" {
				req.Checkpoint = threads.CheckpointConfig{"checkpoint_id": checkpointID}
			}
			result, err := a.clients.Threads.UpdateState(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return a.print(cmd, result, func(w io.Writer) {
				okColor.Fprint(w, "updated ")
				fmt.Fprintln(w, compactJSON(result))
			})
		},
	}
	update.Flags().String("values", "", "State values as JSON (required)")
	update.Flags().String("as-node", "", "Attribute the update to this graph node")
	update.Flags().String("checkpoint", "", "Branch from this checkpoint id instead of the latest")
	update.MarkFlagRequired("values")

	history := &cobra.Command{
		Use:   "history <thread-id>",
		Short: "List past states, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			before, _ := cmd.Flags().GetString("before")
			states, err := a.clients.Threads.GetHistory(cmd.Context(), args[0], threads.HistoryOptions{
				Limit:  limit,
				Before: before,
			})
			if err != nil {
				return err
			}
			return a.print(cmd, states, func(w io.Writer) {
				for _, st := range states {
					writeState(w, "", st)
				}
			})
		},
	}
	history.Flags().IntP("limit", "l", threads.DefaultLimit, "Max states")
	history.Flags().String("before", "", "Only states older than this checkpoint id")

	cp := &cobra.Command{
		Use:   "copy <thread-id>",
		Short: "Copy a thread into a new one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			thread, err := a.clients.Threads.Copy(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(cmd, thread, func(w io.Writer) { writeThread(w, *thread) })
		},
	}

	threadsCmd.AddCommand(create, get, rm, search, state, update, history, cp)
	return threadsCmd
}
