package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core/class"
	"github.com/darasahq/darasa/core/message"
	"github.com/darasahq/darasa/core/user"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
)

// ResetDB empties every table between tests.
func ResetDB(t *testing.T, db *inmemdb.DB) {
	t.Helper()
	db.Reset()
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

// CreateParent creates an active parent account linked to the given students.
func CreateParent(
	t *testing.T,
	repo user.Repository,
	name, uname, email string,
	children ...user.User,
) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     []string{user.RoleParent},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, child := range children {
		usr.ChildIDs = append(usr.ChildIDs, child.ID)
	}
	usr.SetActive(true)
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateParent(): %v", err)
	}
	return usr
}

func CreateMessage(
	t *testing.T,
	repo message.Repository,
	sender, receiver user.User,
	subject, content string,
	createdAt ...time.Time,
) message.Message {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	msg, err := repo.CreateMessage(context.Background(), message.Message{
		SenderID:   sender.ID,
		ReceiverID: null.StringFrom(receiver.ID),
		Subject:    subject,
		Content:    content,
		Kind:       message.KindGeneral,
		CreatedAt:  tstamp,
	})
	if err != nil {
		t.Fatalf("CreateMessage(): %v", err)
	}
	return msg
}

// CreateReply threads a reply under the root of the given parent message.
func CreateReply(
	t *testing.T,
	repo message.Repository,
	parent message.Message,
	sender, receiver user.User,
	content string,
	createdAt ...time.Time,
) message.Message {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	rootID := parent.ID
	if parent.ThreadID.Valid {
		rootID = parent.ThreadID.String
	}
	msg, err := repo.CreateMessage(context.Background(), message.Message{
		SenderID:   sender.ID,
		ReceiverID: null.StringFrom(receiver.ID),
		Subject:    "Re: " + parent.Subject,
		Content:    content,
		Kind:       parent.Kind,
		ThreadID:   null.StringFrom(rootID),
		ReplyToID:  null.StringFrom(parent.ID),
		CreatedAt:  tstamp,
	})
	if err != nil {
		t.Fatalf("CreateReply(): %v", err)
	}
	return msg
}

func CreateClass(
	t *testing.T,
	repo class.Repository,
	name string,
	teacher user.User,
	students ...user.User,
) class.Class {
	t.Helper()

	now := time.Now().UTC()
	cls := class.Class{
		Name:      name,
		TeacherID: teacher.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, st := range students {
		cls.StudentIDs = append(cls.StudentIDs, st.ID)
	}
	cls, err := repo.CreateClass(context.Background(), cls)
	if err != nil {
		t.Fatalf("CreateClass(): %v", err)
	}
	return cls
}

func CreateSubject(
	t *testing.T,
	repo class.Repository,
	name, code string,
	teacher user.User,
) class.Subject {
	t.Helper()

	sub, err := repo.CreateSubject(context.Background(), class.Subject{
		Name:      name,
		Code:      code,
		TeacherID: teacher.ID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSubject(): %v", err)
	}
	return sub
}
