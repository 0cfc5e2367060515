package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-xsf/internal/api"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Inspect the route table",
}

var routesListCommand string

var routesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List routes",
	Long:  `List every route in the table, optionally restricted to one command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/admin/routes"
		if routesListCommand != "" {
			path += "?command=" + url.QueryEscape(routesListCommand)
		}

		client := NewClient(adminURL, adminToken)
		data, err := client.Request(cmd.Context(), "GET", path, nil)
		if err != nil {
			return err
		}

		if output == "json" {
			return printJSON(cmd.OutOrStdout(), data)
		}

		var resp struct {
			Routes []api.RouteResponse `json:"routes"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}

		if len(resp.Routes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No routes found.")
			return nil
		}

		headers := []string{"METHOD", "URI", "COMMAND", "INPUT", "AUTH", "CACHED", "RULE"}
		rows := make([][]string, len(resp.Routes))
		for i, r := range resp.Routes {
			input := r.Input
			if input != "" {
				input = r.InputKey + ":" + input
			}
			rows[i] = []string{r.Method, r.URI, r.Command, input, strconv.FormatBool(r.Authenticated), strconv.FormatBool(r.Cached), r.Rule}
		}
		printTable(cmd.OutOrStdout(), headers, rows)
		return nil
	},
}

var (
	routesResolveMethod string
	routesResolveURI    string
)

var routesResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show which route serves a request",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		query.Set("uri", routesResolveURI)
		query.Set("method", routesResolveMethod)

		client := NewClient(adminURL, adminToken)
		data, err := client.Request(cmd.Context(), "GET", "/admin/routes/resolve?"+query.Encode(), nil)
		if err != nil {
			return err
		}

		if output == "json" {
			return printJSON(cmd.OutOrStdout(), data)
		}

		var resp struct {
			Route          api.RouteResponse `json:"route"`
			PathParameters map[string]string `json:"path_parameters"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Command:  %s\n", resp.Route.Command)
		fmt.Fprintf(out, "Route:    %s %s\n", resp.Route.Method, resp.Route.URI)
		for name, value := range resp.PathParameters {
			fmt.Fprintf(out, "  %s = %s\n", name, value)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.AddCommand(routesListCmd)
	routesCmd.AddCommand(routesResolveCmd)

	routesListCmd.Flags().StringVar(&routesListCommand, "command", "", "Only list routes of this command")

	routesResolveCmd.Flags().StringVar(&routesResolveMethod, "method", "GET", "HTTP method")
	routesResolveCmd.Flags().StringVar(&routesResolveURI, "uri", "", "Request URI without the sub-context (required)")
	_ = routesResolveCmd.MarkFlagRequired("uri")
}
