package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/docopt/docopt-go"

	"sharedlist.com/listsync"
)

const ListSyncCtlVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `List sync control.

The default urls are:
    api_url: https://api.sharedlist.com/api
    platform_url: wss://platform.sharedlist.com

Usage:
    listsyncctl watch [--api_url=<api_url>] [--platform_url=<platform_url>]
        --jwt=<jwt> --list=<list_id>
    listsyncctl items [--api_url=<api_url>] --jwt=<jwt> --list=<list_id>
    listsyncctl add [--api_url=<api_url>] [--platform_url=<platform_url>]
        --jwt=<jwt> --list=<list_id> <body>
    listsyncctl complete [--api_url=<api_url>] [--platform_url=<platform_url>]
        --jwt=<jwt> --list=<list_id> <item_id>
    listsyncctl uncomplete [--api_url=<api_url>] [--platform_url=<platform_url>]
        --jwt=<jwt> --list=<list_id> <item_id>
    listsyncctl edit [--api_url=<api_url>] [--platform_url=<platform_url>]
        --jwt=<jwt> --list=<list_id> <item_id> <body>
    listsyncctl delete [--api_url=<api_url>] [--platform_url=<platform_url>]
        --jwt=<jwt> --list=<list_id> <item_id>
    listsyncctl rename [--api_url=<api_url>] --jwt=<jwt> --list=<list_id> <title>
    listsyncctl shares [--api_url=<api_url>] --jwt=<jwt> --list=<list_id>
    listsyncctl share [--api_url=<api_url>] --jwt=<jwt> --list=<list_id>
        --email=<email> [--permission=<permission>]
    listsyncctl unshare [--api_url=<api_url>] --jwt=<jwt> --list=<list_id>
        --share=<share_id> [--yes]

Options:
    -h --help                    Show this screen.
    --version                    Show version.
    --api_url=<api_url>
    --platform_url=<platform_url>
    --jwt=<jwt>                  Your session access token.
    --list=<list_id>             List id.
    --email=<email>              Share target email.
    --permission=<permission>    Share permission, view or edit [default: view].
    --share=<share_id>           Share id.
    --yes                        Skip the unshare confirmation.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], ListSyncCtlVersion)
	if err != nil {
		panic(err)
	}

	if watch_, _ := opts.Bool("watch"); watch_ {
		watch(opts)
	} else if items_, _ := opts.Bool("items"); items_ {
		items(opts)
	} else if add_, _ := opts.Bool("add"); add_ {
		add(opts)
	} else if complete_, _ := opts.Bool("complete"); complete_ {
		setCompleted(opts, true)
	} else if uncomplete_, _ := opts.Bool("uncomplete"); uncomplete_ {
		setCompleted(opts, false)
	} else if edit_, _ := opts.Bool("edit"); edit_ {
		edit(opts)
	} else if delete_, _ := opts.Bool("delete"); delete_ {
		deleteItem(opts)
	} else if rename_, _ := opts.Bool("rename"); rename_ {
		rename(opts)
	} else if shares_, _ := opts.Bool("shares"); shares_ {
		shares(opts)
	} else if share_, _ := opts.Bool("share"); share_ {
		share(opts)
	} else if unshare_, _ := opts.Bool("unshare"); unshare_ {
		unshare(opts)
	}
}

func newSession(opts docopt.Opts) *listsync.Session {
	apiUrl := "https://api.sharedlist.com/api"
	if apiUrl_, err := opts.String("--api_url"); err == nil && apiUrl_ != "" {
		apiUrl = apiUrl_
	}
	platformUrl := "wss://platform.sharedlist.com"
	if platformUrl_, err := opts.String("--platform_url"); err == nil && platformUrl_ != "" {
		platformUrl = platformUrl_
	}
	jwt, _ := opts.String("--jwt")

	session, err := listsync.NewSession(context.Background(), apiUrl, platformUrl, jwt)
	if err != nil {
		Err.Fatalf("could not parse session token: %s", err)
	}
	return session
}

func openList(opts docopt.Opts) (*listsync.Session, *listsync.ListSession) {
	session := newSession(opts)

	listId := requireInt64(opts, "--list")
	listSession, err := listsync.OpenListWithDefaults(context.Background(), session, listId)
	if err != nil {
		if openErr, ok := err.(*listsync.ListOpenError); ok {
			Err.Fatalf("%s", openErr.Message)
		}
		Err.Fatalf("open error: %s", err)
	}
	return session, listSession
}

func requireInt64(opts docopt.Opts, key string) int64 {
	str, err := opts.String(key)
	if err != nil {
		Err.Fatalf("missing %s", key)
	}
	value, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		Err.Fatalf("%s must be an integer: %s", key, err)
	}
	return value
}

func printItems(listSession *listsync.ListSession) {
	Out.Printf("%s (%s)", listSession.Title(), listSession.Permission())
	for _, item := range listSession.Items() {
		status := " "
		if item.Completed {
			status = "x"
		}
		Out.Printf("[%s] %d %s", status, item.ItemId, item.Body)
	}
}

func watch(opts docopt.Opts) {
	session, listSession := openList(opts)
	defer session.Logout()
	defer listSession.Close()

	printItems(listSession)

	unsub := listSession.Engine().AddChangeCallback(func() {
		printItems(listSession)
	})
	defer unsub()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
}

func items(opts docopt.Opts) {
	session, listSession := openList(opts)
	defer session.Logout()
	defer listSession.Close()

	printItems(listSession)
}

func add(opts docopt.Opts) {
	session, listSession := openList(opts)
	defer session.Logout()
	defer listSession.Close()

	body, _ := opts.String("<body>")
	item, err := listSession.CreateItem(body)
	if err != nil {
		Err.Fatalf("add error: %s", err)
	}
	if item == nil {
		Err.Fatalf("nothing to add")
	}
	Out.Printf("added %d", item.ItemId)
}

func setCompleted(opts docopt.Opts, completed bool) {
	session, listSession := openList(opts)
	defer session.Logout()
	defer listSession.Close()

	itemId := requireInt64(opts, "<item_id>")
	item, err := listSession.SetCompleted(itemId, completed)
	if err != nil {
		Err.Fatalf("update error: %s", err)
	}
	Out.Printf("updated %d completed=%t", item.ItemId, item.Completed)
}

func edit(opts docopt.Opts) {
	session, listSession := openList(opts)
	defer session.Logout()
	defer listSession.Close()

	itemId := requireInt64(opts, "<item_id>")
	body, _ := opts.String("<body>")
	item, err := listSession.EditBody(itemId, body)
	if err != nil {
		Err.Fatalf("update error: %s", err)
	}
	Out.Printf("updated %d", item.ItemId)
}

func deleteItem(opts docopt.Opts) {
	session, listSession := openList(opts)
	defer session.Logout()
	defer listSession.Close()

	itemId := requireInt64(opts, "<item_id>")
	if err := listSession.DeleteItem(itemId); err != nil {
		Err.Fatalf("delete error: %s", err)
	}
	Out.Printf("deleted %d", itemId)
}

func rename(opts docopt.Opts) {
	session, listSession := openList(opts)
	defer session.Logout()
	defer listSession.Close()

	title, _ := opts.String("<title>")
	if err := listSession.RenameTitle(title); err != nil {
		Err.Fatalf("rename error: %s", err)
	}
	Out.Printf("title: %s", listSession.Title())
}

func shares(opts docopt.Opts) {
	session, listSession := openList(opts)
	defer session.Logout()
	defer listSession.Close()

	shares, err := listSession.Shares().List(context.Background())
	if err != nil {
		Err.Fatalf("shares error: %s", err)
	}
	for _, share := range shares {
		Out.Printf(
			"%d %s %s %s (%s)",
			share.ShareId,
			share.SharedWithEmail,
			share.SharedWithFirstName,
			share.SharedWithLastName,
			share.Permission,
		)
	}
}

func share(opts docopt.Opts) {
	session, listSession := openList(opts)
	defer session.Logout()
	defer listSession.Close()

	email, _ := opts.String("--email")
	permission, _ := opts.String("--permission")
	created, err := listSession.Shares().Create(
		context.Background(),
		email,
		listsync.Permission(permission),
	)
	if err != nil {
		Err.Fatalf("share error: %s", err)
	}
	Out.Printf("shared with %s as %s", created.SharedWithEmail, created.Permission)
}

func unshare(opts docopt.Opts) {
	session, listSession := openList(opts)
	defer session.Logout()
	defer listSession.Close()

	shareId := requireInt64(opts, "--share")
	yes, _ := opts.Bool("--yes")

	confirm := func() bool {
		if yes {
			return true
		}
		fmt.Fprintf(os.Stderr, "unshare %d? [y/N] ", shareId)
		var answer string
		fmt.Scanln(&answer)
		return answer == "y" || answer == "Y"
	}

	if err := listSession.Shares().Remove(context.Background(), shareId, confirm); err != nil {
		Err.Fatalf("unshare error: %s", err)
	}
	Out.Printf("unshared %d", shareId)
}
