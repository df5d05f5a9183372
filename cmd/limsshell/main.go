// Command limsshell is a line-oriented client for a Screensaver LIMS
// backend. It drives the same framework layer the browser UI uses: the
// navigation-stack router, the composed resource registry, vocabulary
// resolution, generated edit forms, and the download side channel.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/openlims/limsclient/internal/api"
	"github.com/openlims/limsclient/internal/appstate"
	"github.com/openlims/limsclient/internal/download"
	"github.com/openlims/limsclient/internal/fixture"
	"github.com/openlims/limsclient/internal/formschema"
	"github.com/openlims/limsclient/internal/localstore"
	"github.com/openlims/limsclient/internal/menu"
	"github.com/openlims/limsclient/internal/router"
	"github.com/openlims/limsclient/internal/schema"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baseURL := os.Getenv("LIMS_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	username := os.Getenv("LIMS_USER")
	if username == "" {
		username = "admin"
	}
	storePath := os.Getenv("LIMS_LOCAL_STORE")
	if storePath == "" {
		storePath = "file:limsshell.db"
	}

	if err := run(ctx, baseURL, username, storePath); err != nil {
		log.Fatalf("limsshell: %v", err)
	}
}

func run(ctx context.Context, baseURL, username, storePath string) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	client := api.New(baseURL)
	client.HTTP = &http.Client{Jar: jar}

	uiFixture, err := fixture.UiResources()
	if err != nil {
		return err
	}
	searches, err := localstore.Open(ctx, storePath)
	if err != nil {
		return err
	}
	defer searches.Close()

	in := bufio.NewScanner(os.Stdin)
	state := appstate.New(appstate.Config{
		Client:      client,
		ReportsRoot: "/reports/api/v1",
		Fixture:     uiFixture,
		Confirmer:   &promptConfirmer{in: in},
	})
	if err := state.Start(ctx, username); err != nil {
		return fmt.Errorf("session bootstrap: %w", err)
	}

	sh := &shell{
		ctx:      ctx,
		in:       in,
		client:   client,
		state:    state,
		searches: searches,
		history:  &shellHistory{},
		forms:    formschema.NewGenerator(func(err error) { state.Error(err.Error()) }),
		cookies:  &jarCookies{jar: jar, base: baseURL},
	}
	sh.router = router.New(state, sh.history)
	sh.history.router = sh.router

	user := state.CurrentUser()
	fmt.Printf("connected to %s as %s\n", baseURL, user.Username)
	fmt.Println(`type "help" for commands`)
	sh.loop()
	return nil
}

// shellHistory is the location bar of the shell: a fragment stack the
// router navigates.
type shellHistory struct {
	router    *router.Router
	fragments []string
}

func (h *shellHistory) Navigate(fragment string, replace bool) {
	if replace && len(h.fragments) > 0 {
		h.fragments[len(h.fragments)-1] = fragment
	} else {
		h.fragments = append(h.fragments, fragment)
	}
}

func (h *shellHistory) Back() {
	if len(h.fragments) < 2 {
		return
	}
	h.fragments = h.fragments[:len(h.fragments)-1]
	h.router.HandleURLChange(h.fragments[len(h.fragments)-1])
}

// promptConfirmer asks ok/cancel questions on the terminal.
type promptConfirmer struct {
	in *bufio.Scanner
}

func (p *promptConfirmer) Confirm(title, body string, ok, cancel func()) {
	fmt.Printf("%s\n%s [y/N]: ", title, body)
	if p.in.Scan() && strings.EqualFold(strings.TrimSpace(p.in.Text()), "y") {
		ok()
		return
	}
	cancel()
}

// jarCookies adapts the HTTP client's cookie jar to the download watcher.
type jarCookies struct {
	jar  http.CookieJar
	base string
}

func (j *jarCookies) Cookie(name string) (string, bool) {
	u, err := url.Parse(j.base)
	if err != nil {
		return "", false
	}
	for _, c := range j.jar.Cookies(u) {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

type shell struct {
	ctx      context.Context
	in       *bufio.Scanner
	client   *api.Client
	state    *appstate.State
	searches *localstore.Store
	history  *shellHistory
	router   *router.Router
	forms    *formschema.Generator
	cookies  download.CookieSource
}

func (sh *shell) loop() {
	for {
		fmt.Print("> ")
		if !sh.in.Scan() {
			return
		}
		line := strings.TrimSpace(sh.in.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]
		if cmd == "exit" || cmd == "quit" {
			return
		}
		if err := sh.dispatch(cmd, args); err != nil {
			fmt.Println("error:", err)
		}
		sh.showMessages()
	}
}

func (sh *shell) dispatch(cmd string, args []string) error {
	switch cmd {
	case "help":
		sh.help()
		return nil
	case "go":
		if len(args) == 0 {
			return fmt.Errorf("usage: go <path>")
		}
		sh.state.RequestPageChange(appstate.PageChangeOptions{OK: func() {
			sh.history.Navigate(strings.Join(args, " "), false)
			sh.router.HandleURLChange(strings.Join(args, " "))
		}})
		return nil
	case "back":
		sh.router.Back()
		return nil
	case "stack":
		fmt.Println(sh.state.URIStack())
		return nil
	case "menu":
		sh.printMenu()
		return nil
	case "resources":
		return sh.printResources()
	case "schema":
		if len(args) != 1 {
			return fmt.Errorf("usage: schema <resource>")
		}
		return sh.printSchema(args[0])
	case "list":
		if len(args) == 0 {
			return fmt.Errorf("usage: list <resource> [key=value ...]")
		}
		return sh.list(args[0], args[1:])
	case "get":
		if len(args) != 2 {
			return fmt.Errorf("usage: get <resource> <id>")
		}
		return sh.get(args[0], args[1])
	case "edit":
		if len(args) != 2 {
			return fmt.Errorf("usage: edit <resource> <id>")
		}
		return sh.edit(args[0], args[1])
	case "add":
		if len(args) == 0 {
			return fmt.Errorf("usage: add <resource> [key=value ...]")
		}
		return sh.save(args[0], "", args[1:])
	case "save":
		if len(args) < 2 {
			return fmt.Errorf("usage: save <resource> <id> [key=value ...]")
		}
		return sh.save(args[0], args[1], args[2:])
	case "vocab":
		if len(args) != 1 {
			return fmt.Errorf("usage: vocab <scope>")
		}
		for _, opt := range sh.state.GetVocabularySelectOptions(args[0]) {
			fmt.Printf("  %-30s %s\n", opt.Val, opt.Label)
		}
		return nil
	case "addvocab":
		if len(args) < 2 {
			return fmt.Errorf("usage: addvocab <scope> <title...>")
		}
		title := strings.Join(args[1:], " ")
		term, err := sh.state.AddVocabularyTerm(sh.ctx, args[0], title, "added from shell")
		if err != nil {
			return err
		}
		fmt.Printf("added %s/%s\n", term.Scope, term.Key)
		return nil
	case "download":
		if len(args) < 1 {
			return fmt.Errorf("usage: download <resource> [format]")
		}
		format := "csv"
		if len(args) > 1 {
			format = args[1]
		}
		return sh.download(args[0], format)
	case "savesearch":
		if len(args) < 2 {
			return fmt.Errorf("usage: savesearch <id> key=value ...")
		}
		return sh.searches.SetSearch(sh.ctx, args[0], parsePairs(args[1:]))
	case "loadsearch":
		if len(args) != 1 {
			return fmt.Errorf("usage: loadsearch <id>")
		}
		search, err := sh.searches.GetSearch(sh.ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(api.SearchString(search))
		return nil
	default:
		return fmt.Errorf("unknown command %q, type help", cmd)
	}
}

func (sh *shell) help() {
	fmt.Print(`Navigation:
  go <path>                navigate, e.g. go list/screen/search/rnai/rpp/50
  back                     previous location
  stack                    show the current navigation stack
  menu                     show the menu for the current user

Data:
  resources                list composed UI resources
  schema <resource>        show a resource's fields
  list <resource> [k=v]    list entities, search terms as k=v
  get <resource> <id>      entity detail with vocabulary titles
  vocab <scope>            vocabulary options (retired excluded)
  addvocab <scope> <title> add a vocabulary term

Editing:
  edit <resource> <id>     show the generated edit form
  add <resource> k=v ...   create (prompts for audit comment)
  save <resource> <id> k=v update (prompts for audit comment)

Other:
  download <resource> [format]  export with cookie-confirmed delivery
  savesearch <id> k=v ...       store a search locally
  loadsearch <id>               recall a stored search
  exit
`)
}

func (sh *shell) showMessages() {
	msgs := sh.state.Messages()
	for _, m := range msgs {
		fmt.Println("!", m)
	}
	if len(msgs) > 0 {
		sh.state.ClearMessages()
	}
}

func (sh *shell) printMenu() {
	root := menu.Filter(fixture.Menu(), sh.state)
	if root == nil {
		fmt.Println("(no menu entries visible)")
		return
	}
	var walk func(it *menu.Item, depth int)
	walk = func(it *menu.Item, depth int) {
		marker := ""
		if it.IsLeaf() && len(it.Stack) > 0 {
			marker = " -> " + strings.Join(it.Stack, "/")
		}
		fmt.Printf("%s%s%s\n", strings.Repeat("  ", depth), it.Title, marker)
		for _, sub := range it.Submenus {
			walk(sub, depth+1)
		}
	}
	walk(root, 0)
}

func (sh *shell) printResources() error {
	resources := sh.state.Resources()
	keys := make([]string, 0, len(resources))
	for key := range resources {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		res := resources[key]
		virtual := ""
		if res.APIResource != "" && res.APIResource != key {
			virtual = " (virtual over " + res.APIResource + ")"
		}
		fmt.Printf("  %-24s %s%s\n", key, res.Title, virtual)
	}
	return nil
}

func (sh *shell) printSchema(resourceID string) error {
	sc, err := sh.state.GetSchema(resourceID)
	if err != nil {
		return err
	}
	if sc == nil {
		return fmt.Errorf("resource %s has no schema", resourceID)
	}
	for _, key := range sc.FilterKeys(schema.SelectVisibility, "d") {
		f := sc.Fields[key]
		vocabRef := ""
		if f.VocabularyScope != "" {
			vocabRef = "  vocab=" + f.VocabularyScope
		}
		fmt.Printf("  %3d %-28s %-8s%s\n", f.Ordinal, key, f.DataType, vocabRef)
	}
	return nil
}

func (sh *shell) list(resourceID string, terms []string) error {
	res, err := sh.state.GetResource(resourceID)
	if err != nil {
		return err
	}
	if res.Schema == nil {
		return fmt.Errorf("resource %s has no schema", resourceID)
	}
	params := api.ListParams{}
	if res.Options != nil {
		params.RPP = res.Options.RPP
		params.Order = res.Options.Order
		params.Search = res.Options.Search
	}
	if len(terms) > 0 {
		merged := map[string]string{}
		for k, v := range params.Search {
			merged[k] = v
		}
		for k, v := range parsePairs(terms) {
			merged[k] = v
		}
		params.Search = merged
	}
	result, err := sh.client.List(sh.ctx, res, params)
	if err != nil {
		sh.state.Error(err.Error())
		return nil
	}
	listKeys := res.Schema.FilterKeys(schema.SelectVisibility, "l")
	for _, e := range result.Objects {
		parts := make([]string, 0, len(listKeys))
		for _, key := range listKeys {
			if v, ok := e[key]; ok {
				parts = append(parts, fmt.Sprintf("%s=%v", key, v))
			}
		}
		fmt.Println(" ", strings.Join(parts, "  "))
	}
	fmt.Printf("(%d shown)\n", len(result.Objects))
	return nil
}

func (sh *shell) get(resourceID, id string) error {
	entity, res, err := sh.state.GetModel(sh.ctx, resourceID, id)
	if err != nil {
		return err
	}
	if res.Schema == nil {
		return fmt.Errorf("resource %s has no schema", resourceID)
	}
	for _, key := range res.Schema.DetailKeys() {
		f := res.Schema.Fields[key]
		v, ok := entity[key]
		if !ok {
			continue
		}
		display := fmt.Sprint(v)
		if f.VocabularyScope != "" {
			display = sh.state.GetVocabularyTitle(f.VocabularyScope, display)
		}
		fmt.Printf("  %-28s %s\n", f.Title+":", display)
	}
	return nil
}

func (sh *shell) edit(resourceID, id string) error {
	entity, res, err := sh.state.GetModel(sh.ctx, resourceID, id)
	if err != nil {
		return err
	}
	if res.Schema == nil {
		return fmt.Errorf("resource %s has no schema", resourceID)
	}
	keys := make([]string, 0, len(entity))
	for key := range entity {
		keys = append(keys, key)
	}
	form := sh.forms.Build(resourceID, res.Schema, keys)
	for _, f := range form.Fields {
		required := ""
		if res.Schema.Fields[f.Key] != nil && res.Schema.Fields[f.Key].Required {
			required = " *"
		}
		fmt.Printf("  %-28s %s%s\n", f.Key, f.Kind, required)
		for _, opt := range f.Options {
			fmt.Printf("      - %s\n", opt.Val)
		}
	}
	return nil
}

// save validates values against the generated form and dispatches the
// mutation: POST to the collection for a create, PATCH to the entity
// otherwise. On success it navigates to the entity detail.
func (sh *shell) save(resourceID, id string, pairs []string) error {
	res, err := sh.state.GetResource(resourceID)
	if err != nil {
		return err
	}
	if res.Schema == nil {
		return fmt.Errorf("resource %s has no schema", resourceID)
	}
	values := api.Entity{}
	for k, v := range parsePairs(pairs) {
		values[k] = v
	}

	// Creates validate every createable field; updates validate only the
	// fields being changed.
	var formKeys []string
	if id == "" {
		formKeys = res.Schema.FilterKeys(schema.SelectEditability, "c")
	} else {
		for key := range values {
			formKeys = append(formKeys, key)
		}
	}
	form := sh.forms.Build(resourceID, res.Schema, formKeys)

	fmt.Print("audit comment: ")
	comment := ""
	if sh.in.Scan() {
		comment = strings.TrimSpace(sh.in.Text())
	}

	submitted := map[string]any{formschema.CommentKey: comment}
	for k, v := range values {
		submitted[k] = v
	}
	fieldErrs := form.Validate(submitted)
	if len(fieldErrs) > 0 {
		for key, msg := range fieldErrs {
			fmt.Printf("  %s: %s\n", key, msg)
		}
		return fmt.Errorf("not saved")
	}

	var saved api.Entity
	if id == "" {
		saved, err = sh.client.Create(sh.ctx, res, values, comment)
	} else {
		saved, err = sh.client.Patch(sh.ctx, res, id, values, comment)
	}
	if err != nil {
		sh.state.Error(err.Error())
		return nil
	}

	savedID := id
	if savedID == "" && len(res.IDAttribute) > 0 {
		parts := make([]string, 0, len(res.IDAttribute))
		for _, attr := range res.IDAttribute {
			parts = append(parts, fmt.Sprint(saved[attr]))
		}
		savedID = strings.Join(parts, "/")
	}
	fmt.Println("saved", resourceID+"/"+savedID)
	fragment := resourceID + "/" + savedID
	sh.history.Navigate(fragment, false)
	sh.router.HandleURLChange(fragment)
	return nil
}

func (sh *shell) download(resourceID, format string) error {
	res, err := sh.state.GetResource(resourceID)
	if err != nil {
		return err
	}
	req, err := download.NewRequest(sh.client.ResourceURL(res), download.Options{
		Format:          format,
		UseVocabularies: true,
		UseTitles:       true,
	})
	if err != nil {
		return err
	}
	resp, err := sh.client.HTTP.Get(req.URL)
	if err != nil {
		sh.state.Error(err.Error())
		return nil
	}
	resp.Body.Close()

	watcher := download.NewWatcher(sh.cookies)
	if err := watcher.Wait(sh.ctx, req); err != nil {
		sh.state.Error(err.Error())
		return nil
	}
	fmt.Println("download confirmed:", req.DownloadID)
	return nil
}

func parsePairs(args []string) map[string]string {
	out := map[string]string{}
	for _, arg := range args {
		if k, v, ok := strings.Cut(arg, "="); ok {
			out[k] = v
		}
	}
	return out
}
