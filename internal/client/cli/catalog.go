package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/fileflow/internal/client/services"
	"github.com/dmitrijs2005/fileflow/internal/common"
)

var errUsage = errors.New("usage")

func usage(text string) error {
	return fmt.Errorf("%w: %s", errUsage, text)
}

func parseID(args []string, text string) (int64, error) {
	if len(args) < 1 {
		return 0, usage(text)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id %q", common.ErrorValidation, args[0])
	}
	return id, nil
}

// Refresh reloads the whole catalog from the backend.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.catalog.LoadCatalog(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Loaded %d documents in %d categories\n", len(a.catalog.Catalog()), len(a.catalog.Categories()))
	return nil
}

// List prints the documents matching the current category filter and the
// given search term. The term is remembered for later listings.
func (a *App) List(ctx context.Context, args []string) error {
	if a.catalog.State() != services.StateReady && a.catalog.LastError() == nil {
		return fmt.Errorf("%w (%s)", services.ErrCatalogNotReady, a.catalog.State())
	}
	a.search = strings.Join(args, " ")
	a.printList(ctx)
	return nil
}

func (a *App) printList(ctx context.Context) {
	p := a.palette(ctx)
	if err := a.catalog.LastError(); err != nil {
		fmt.Fprintln(a.out, p.warn.Render("Last refresh failed, showing previous data: "+err.Error()))
	}
	renderDocuments(a.out, p, a.catalog.Filter(a.search, a.filter), a.now())
}

// Categories prints every category with its document count.
func (a *App) Categories(ctx context.Context) error {
	if a.catalog.State() != services.StateReady && len(a.catalog.Categories()) == 0 {
		return fmt.Errorf("%w (%s)", services.ErrCatalogNotReady, a.catalog.State())
	}
	renderCategories(a.out, a.palette(ctx), a.catalog.Categories(), a.catalog.Catalog())
	return nil
}

// Filter switches the category filter ("all" or a category id), optionally
// with a new search term, and lists the result.
func (a *App) Filter(ctx context.Context, args []string) error {
	const text = "filter <categoryId|all> [search]"
	if len(args) < 1 {
		return usage(text)
	}

	filter := services.AllCategories
	if !strings.EqualFold(args[0], "all") {
		id, err := parseID(args, text)
		if err != nil {
			return err
		}
		if !a.hasCategory(id) {
			return fmt.Errorf("%w: %d", services.ErrCategoryNotFound, id)
		}
		filter = services.ByCategory(id)
	}

	a.filter = filter
	a.search = strings.Join(args[1:], " ")
	a.printList(ctx)
	return nil
}

func (a *App) hasCategory(id int64) bool {
	for _, c := range a.catalog.Categories() {
		if c.ID == id {
			return true
		}
	}
	return false
}

// AddCategory creates a category. The name is taken from the arguments or
// prompted for.
func (a *App) AddCategory(ctx context.Context, args []string) error {
	name := strings.Join(args, " ")
	if strings.TrimSpace(name) == "" {
		var err error
		if name, err = getSimpleText(a.reader, "Enter category name", a.out); err != nil {
			return err
		}
	}

	c, err := a.catalog.AddCategory(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Category %q created with id %d\n", c.Name, c.ID)
	return nil
}

func (a *App) DeleteCategory(ctx context.Context, args []string) error {
	id, err := parseID(args, "delcategory <id>")
	if err != nil {
		return err
	}

	if err := a.catalog.DeleteCategory(ctx, id, a.confirm); err != nil {
		return err
	}
	if a.filter == services.ByCategory(id) {
		a.filter = services.AllCategories
	}
	fmt.Fprintln(a.out, "Category deleted.")
	return nil
}

func (a *App) DeleteDocument(ctx context.Context, args []string) error {
	id, err := parseID(args, "delete <id>")
	if err != nil {
		return err
	}

	if err := a.catalog.DeleteDocument(ctx, id, a.confirm); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Document deleted.")
	return nil
}
