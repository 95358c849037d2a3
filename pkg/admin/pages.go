package admin

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/content"
	"github.com/adfharrison1/go-tours/pkg/domain"
)

// recentActivity is how many change events the dashboard shows
const recentActivity = 15

// HandleDashboard shows counts per kind and the latest changes
func (a *Admin) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	view := DashboardView{}
	for _, kind := range content.Kinds() {
		if kind.Singleton() {
			continue
		}
		total, err := a.store.Count(kind, nil)
		if err != nil {
			a.serverError(w, r, err)
			return
		}
		count := KindCount{Kind: kind, Total: total}
		if kind.Publishable() {
			published, err := a.store.Count(kind, map[string]interface{}{"published": true})
			if err != nil {
				a.serverError(w, r, err)
				return
			}
			count.Drafts = total - published
		}
		view.Counts = append(view.Counts, count)
		view.Documents += total

		if kind.Name == content.KindInquiry {
			view.NewLeads, _ = a.store.Count(kind, map[string]interface{}{"status": content.StatusNew})
		}
	}

	for _, event := range a.store.DB().RecentChanges(recentActivity) {
		view.Recent = append(view.Recent, activity(event))
	}
	a.render(w, r, http.StatusOK, "dashboard", "Dashboard", view)
}

func activity(event domain.ChangeEvent) Activity {
	act := Activity{Action: string(event.Type), Kind: event.Collection, Title: event.DocumentID, At: event.Timestamp}
	kind, ok := content.ByCollection(event.Collection)
	if !ok {
		return act
	}
	act.Kind = kind.Label
	if event.Document != nil {
		act.Title = titleOf(kind, event.Document)
	}
	if event.Type != domain.ChangeDelete {
		act.URL = editURL(kind, event.DocumentID)
	}
	return act
}

// HandleList lists the documents of a kind in its default order
func (a *Admin) HandleList(w http.ResponseWriter, r *http.Request) {
	kind, ok := a.kind(w, r)
	if !ok {
		return
	}
	docs, err := a.store.List(kind, nil)
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	view := ListView{Kind: kind, Rows: make([]Row, 0, len(docs))}
	for _, doc := range docs {
		row := Row{
			ID:      doc.ID(),
			Title:   titleOf(kind, doc),
			URL:     editURL(kind, doc.ID()),
			Updated: updatedAt(doc),
		}
		if kind.Publishable() {
			row.Draft = doc["published"] != true
		}
		if status, ok := doc["status"].(string); ok {
			row.Status = status
		}
		if active, ok := doc["active"].(bool); ok && !active {
			row.Status = "inactive"
		}
		view.Rows = append(view.Rows, row)
	}
	a.render(w, r, http.StatusOK, "list", kind.Plural, view)
}

// HandleNew shows an empty form filled with the field defaults
func (a *Admin) HandleNew(w http.ResponseWriter, r *http.Request) {
	kind, ok := a.kind(w, r)
	if !ok {
		return
	}
	a.renderFormDoc(w, r, http.StatusOK, kind, "", defaults(kind), nil)
}

// HandleCreate stores a submitted form as a new document
func (a *Admin) HandleCreate(w http.ResponseWriter, r *http.Request) {
	kind, ok := a.kind(w, r)
	if !ok {
		return
	}
	stored, err := a.store.Create(kind, content.Decode(kind, r.PostForm))
	if err != nil {
		a.saveFailed(w, r, kind, "", err)
		return
	}
	a.flash(r, "success", fmt.Sprintf("%s %q created.", kind.Label, titleOf(kind, stored)))
	http.Redirect(w, r, editURL(kind, stored.ID()), http.StatusSeeOther)
}

// HandleEdit shows the form for a stored document
func (a *Admin) HandleEdit(w http.ResponseWriter, r *http.Request) {
	kind, ok := a.kind(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	doc, err := a.store.Get(kind, id)
	if err != nil {
		a.storeError(w, r, err)
		return
	}
	a.renderFormDoc(w, r, http.StatusOK, kind, id, doc, nil)
}

// HandleUpdate replaces a stored document with the submitted form
func (a *Admin) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	kind, ok := a.kind(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	stored, err := a.store.Replace(kind, id, content.Decode(kind, r.PostForm))
	if err != nil {
		a.saveFailed(w, r, kind, id, err)
		return
	}
	a.flash(r, "success", fmt.Sprintf("%s %q saved.", kind.Label, titleOf(kind, stored)))
	http.Redirect(w, r, editURL(kind, id), http.StatusSeeOther)
}

// HandleDelete removes a document and returns to the list
func (a *Admin) HandleDelete(w http.ResponseWriter, r *http.Request) {
	kind, ok := a.kind(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	doc, err := a.store.Get(kind, id)
	if err == nil {
		err = a.store.Delete(kind, id)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.flash(r, "error", fmt.Sprintf("That %s no longer exists.", kind.Label))
			http.Redirect(w, r, "/admin/"+kind.Name, http.StatusSeeOther)
			return
		}
		a.serverError(w, r, err)
		return
	}
	a.flash(r, "success", fmt.Sprintf("%s %q deleted.", kind.Label, titleOf(kind, doc)))
	http.Redirect(w, r, "/admin/"+kind.Name, http.StatusSeeOther)
}

// HandleSettings shows the site settings form
func (a *Admin) HandleSettings(w http.ResponseWriter, r *http.Request) {
	kind, _ := content.Lookup(content.KindSettings)
	doc, err := a.store.Get(kind, content.SettingsID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrCollectionNotFound) {
			a.serverError(w, r, err)
			return
		}
		doc = defaults(kind)
	}
	a.renderFormDoc(w, r, http.StatusOK, kind, content.SettingsID, doc, nil)
}

// HandleSaveSettings stores the settings singleton
func (a *Admin) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	kind, _ := content.Lookup(content.KindSettings)
	if _, err := a.store.Create(kind, content.Decode(kind, r.PostForm)); err != nil {
		a.saveFailed(w, r, kind, content.SettingsID, err)
		return
	}
	a.flash(r, "success", "Settings saved.")
	http.Redirect(w, r, "/admin/settings", http.StatusSeeOther)
}

// saveFailed re-renders the submitted form with field messages, or shows
// the error page for anything that isn't the editor's fault
func (a *Admin) saveFailed(w http.ResponseWriter, r *http.Request, kind *content.Kind, id string, err error) {
	var verrs content.ValidationErrors
	var dup *content.DuplicateSlugError
	switch {
	case errors.As(err, &verrs):
	case errors.As(err, &dup):
		verrs = dup.Fields()
	case errors.Is(err, domain.ErrNotFound):
		a.notFound(w, r)
		return
	default:
		a.serverError(w, r, err)
		return
	}
	a.renderForm(w, r, http.StatusUnprocessableEntity, kind, id, r.PostForm, verrs,
		Toast{Level: "error", Message: "Please fix the highlighted fields."})
}

func (a *Admin) renderFormDoc(w http.ResponseWriter, r *http.Request, status int, kind *content.Kind, id string, doc domain.Document, errs content.ValidationErrors) {
	a.renderForm(w, r, status, kind, id, content.Encode(kind, doc), errs)
}

func (a *Admin) renderForm(w http.ResponseWriter, r *http.Request, status int, kind *content.Kind, id string, values url.Values, errs content.ValidationErrors, toasts ...Toast) {
	view := FormView{Kind: kind, ID: id, Action: "/admin/" + kind.Name}
	switch {
	case kind.Singleton():
		view.Action = "/admin/settings"
	case id != "":
		view.Action = editURL(kind, id)
	}
	if id != "" {
		view.Public = publicURL(kind, domain.Document{"slug": values.Get("slug")})
	}

	for _, field := range kind.Fields {
		ff := FormField{Field: field, Value: values.Get(field.Name), Error: errs[field.Name]}
		switch field.Type {
		case content.FieldCheckbox:
			ff.Checked = ff.Value != ""
		case content.FieldSelect:
			for _, opt := range field.Options {
				ff.Choices = append(ff.Choices, Option{Value: opt, Label: opt, Selected: opt == ff.Value})
			}
		case content.FieldRef:
			choices, err := a.refChoices(field, ff.Value)
			if err != nil {
				a.serverError(w, r, err)
				return
			}
			ff.Choices = choices
		}
		view.Fields = append(view.Fields, ff)
	}
	if a.media != nil {
		view.Media, _ = a.media.List()
	}

	title := "New " + kind.Label
	if id != "" {
		title = "Edit " + kind.Label
	}
	if kind.Singleton() {
		title = kind.Label
	}
	a.render(w, r, status, "form", title, view, toasts...)
}

// refChoices lists the documents a reference field can point at
func (a *Admin) refChoices(field content.Field, selected string) ([]Option, error) {
	target, ok := content.Lookup(field.RefKind)
	if !ok {
		return nil, fmt.Errorf("field %s references unknown kind %s", field.Name, field.RefKind)
	}
	docs, err := a.store.List(target, nil)
	if err != nil && !errors.Is(err, domain.ErrCollectionNotFound) {
		return nil, err
	}
	choices := []Option{{Value: "", Label: "None", Selected: selected == ""}}
	for _, doc := range docs {
		choices = append(choices, Option{Value: doc.ID(), Label: titleOf(target, doc), Selected: doc.ID() == selected})
	}
	return choices, nil
}

// defaults returns a document holding the kind's field defaults
func defaults(kind *content.Kind) domain.Document {
	doc := domain.Document{}
	for _, field := range kind.Fields {
		if field.Default != nil {
			doc[field.Name] = field.Default
		}
	}
	return doc
}

func (a *Admin) flash(r *http.Request, level, message string) {
	if sess := sessionFrom(r); sess != nil {
		a.sessions.Flash(sess.Token, Toast{Level: level, Message: message})
	}
}

// render executes an admin page, adding the session's queued toasts
func (a *Admin) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data interface{}, toasts ...Toast) {
	page := Page{
		Title:  title,
		Active: mux.Vars(r)["kind"],
		Media:  a.media != nil,
		Data:   data,
	}
	if sess := sessionFrom(r); sess != nil {
		page.Session = sess
		page.Toasts = a.sessions.TakeFlash(sess.Token)
		for _, kind := range content.Kinds() {
			if !kind.Singleton() {
				page.Kinds = append(page.Kinds, kind)
			}
		}
	}
	page.Toasts = append(page.Toasts, toasts...)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := a.tmpl.render(w, name, page); err != nil {
		a.logger.Error("Failed to render admin page", zap.String("page", name), zap.Error(err))
	}
}

func (a *Admin) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrCollectionNotFound) {
		a.notFound(w, r)
		return
	}
	a.serverError(w, r, err)
}

func (a *Admin) notFound(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusNotFound, "error", "Not found", "That page does not exist.")
}

func (a *Admin) serverError(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.Error("Admin request failed", zap.String("path", r.URL.Path), zap.Error(err))
	a.render(w, r, http.StatusInternalServerError, "error", "Something went wrong", "The request failed. Check the server log for details.")
}
