package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/weaver/peer"
)

func newSelectorsCommand() *cobra.Command {
	var pageURL string
	cmd := &cobra.Command{
		Use:   "selectors <file.html>",
		Short: "Print the selector and descriptor of every element in a page body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadPage(args[0], pageURL)
			if err != nil {
				return err
			}
			cfg := peer.DefaultConfig()
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, n := range bodyElements(doc) {
				if err := enc.Encode(peer.Describe(doc, n, cfg)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "http://localhost/", "URL the page is considered loaded from")
	return cmd
}

func newLocateCommand() *cobra.Command {
	var (
		pageURL  string
		markdown bool
	)
	cmd := &cobra.Command{
		Use:   "locate <file.html> <selector>",
		Short: "Resolve a selector produced by the peer back to its element",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadPage(args[0], pageURL)
			if err != nil {
				return err
			}
			n, err := peer.Resolve(doc, args[1])
			if err != nil {
				return err
			}
			if markdown {
				md, err := toMarkdown(n, pageURL)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), md)
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(peer.Describe(doc, n, peer.DefaultConfig()))
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "http://localhost/", "URL the page is considered loaded from")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print the element content as Markdown")
	return cmd
}

func loadPage(path, pageURL string) (*peer.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return peer.Parse(f, pageURL)
}

// bodyElements lists the elements under body in document order, skipping
// the ones the peer never reports.
func bodyElements(doc *peer.Document) []*html.Node {
	body := doc.Body()
	if body == nil {
		return nil
	}
	var out []*html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.DataAtom == atom.Script || c.DataAtom == atom.Style {
				continue
			}
			out = append(out, c)
			visit(c)
		}
	}
	visit(body)
	return out
}

func toMarkdown(n *html.Node, pageURL string) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	md, err := conv.ConvertString(buf.String(), converter.WithDomain(pageURL))
	if err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return md, nil
}
