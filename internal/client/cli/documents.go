package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/fileflow/internal/client/services"
	"github.com/dustin/go-humanize"
)

// Show prints a document as currently held in the catalog.
func (a *App) Show(ctx context.Context, args []string) error {
	id, err := parseID(args, "show <id>")
	if err != nil {
		return err
	}

	doc, ok := a.catalog.Document(id)
	if !ok {
		return fmt.Errorf("%w: %d", services.ErrDocumentNotFound, id)
	}
	renderDocument(a.out, a.palette(ctx), doc, a.now())
	return nil
}

// View reads the document from the backend and prints it together with a
// short-lived link to its content.
func (a *App) View(ctx context.Context, args []string) error {
	id, err := parseID(args, "view <id>")
	if err != nil {
		return err
	}

	doc, err := a.catalog.FetchDocument(ctx, id)
	if err != nil {
		return err
	}

	p := a.palette(ctx)
	renderDocument(a.out, p, doc, a.now())

	link, err := a.catalog.ResolveAccessURL(ctx, doc.FilePath)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s\n", p.label.Render(fmt.Sprintf("%-10s", "Link:")), p.accent.Render(link))
	return nil
}

func (a *App) Download(ctx context.Context, args []string) error {
	id, err := parseID(args, "download <id>")
	if err != nil {
		return err
	}

	doc, ok := a.catalog.Document(id)
	if !ok {
		if doc, err = a.catalog.FetchDocument(ctx, id); err != nil {
			return err
		}
	}

	path, err := a.catalog.DownloadDocument(ctx, doc, a.config.DownloadDir)
	if err != nil {
		return err
	}

	size := "?"
	if info, err := os.Stat(path); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	fmt.Fprintf(a.out, "Saved %s (%s)\n", path, size)
	return nil
}

// Upload sends a local file. Usage: upload <path> [categoryId] [--tag|--no-tag].
// Without a tag flag the autoClassify setting decides. The catalog is
// reloaded afterwards so the new document shows up.
func (a *App) Upload(ctx context.Context, args []string) error {
	const text = "upload <path> [categoryId] [--tag|--no-tag]"

	var (
		path       string
		categoryID *int64
		autoTag    *bool
	)
	for _, arg := range args {
		switch {
		case arg == "--tag" || arg == "--no-tag":
			v := arg == "--tag"
			autoTag = &v
		case strings.HasPrefix(arg, "--"):
			return usage(text)
		case path == "":
			path = arg
		case categoryID == nil:
			id, err := parseID([]string{arg}, text)
			if err != nil {
				return err
			}
			if !a.hasCategory(id) {
				return fmt.Errorf("%w: %d", services.ErrCategoryNotFound, id)
			}
			categoryID = &id
		default:
			return usage(text)
		}
	}
	if path == "" {
		return usage(text)
	}

	res, err := a.uploader.Upload(ctx, path, categoryID, autoTag)
	if err != nil {
		if errors.Is(err, services.ErrAuthRequired) {
			a.forgetCatalog()
		}
		return err
	}

	fmt.Fprintf(a.out, "Uploaded document %d\n", res.DocumentID)
	switch {
	case res.TagErr != nil:
		fmt.Fprintln(a.out, a.palette(ctx).warn.Render("Tagging failed: "+res.TagErr.Error()))
	case len(res.Tags) > 0:
		fmt.Fprintf(a.out, "Tags: %s\n", strings.Join(res.Tags, ", "))
	}

	return a.Refresh(ctx)
}
