// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/hooman/services/intent/engine"
	"github.com/AleutianAI/hooman/services/intent/operator"
	"github.com/AleutianAI/hooman/services/intent/rules"
)

// task is one entry of the demo list.
type task struct {
	ID       int
	Title    string
	Minutes  int
	Due      time.Time
	Priority string
	Tags     []string
}

// taskList is the in-memory list behind the demo commands.
//
// # Thread Safety
//
// Safe for concurrent use.
type taskList struct {
	mu     sync.Mutex
	tasks  []*task
	nextID int
	now    func() time.Time
}

func newTaskList() *taskList {
	return &taskList{nextID: 1, now: time.Now}
}

// handlers returns the demo handler for every command the default registry
// declares.
func (l *taskList) handlers() map[string]operator.Handler {
	return map[string]operator.Handler{
		"addtask":   l.addTask,
		"addtag":    l.addTag,
		"deltask":   l.delTask,
		"listtasks": l.listTasks,
		"timer":     l.timer,
	}
}

func (l *taskList) addTask(_ context.Context, args *engine.ManagedArgs) (any, error) {
	t := &task{
		Title:    joinWords(args, "title"),
		Priority: stringArg(args, "priority"),
		Tags:     wordList(args, "tags"),
	}
	if v, ok := args.Get("minutes"); ok {
		t.Minutes, _ = v.(int)
	}
	if v, ok := args.Get("due"); ok {
		t.Due, _ = v.(time.Time)
	}

	l.mu.Lock()
	t.ID = l.nextID
	l.nextID++
	l.tasks = append(l.tasks, t)
	l.mu.Unlock()

	return "Added task " + t.String(), nil
}

func (l *taskList) addTag(_ context.Context, args *engine.ManagedArgs) (any, error) {
	id := intArg(args, "task")
	tags := wordList(args, "tags")

	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.find(id)
	if t == nil {
		return nil, fmt.Errorf("no task %d", id)
	}
	for _, tag := range tags {
		if !slices.Contains(t.Tags, tag) {
			t.Tags = append(t.Tags, tag)
		}
	}
	return "Tagged task " + t.String(), nil
}

func (l *taskList) delTask(_ context.Context, args *engine.ManagedArgs) (any, error) {
	id := intArg(args, "task")

	l.mu.Lock()
	defer l.mu.Unlock()
	i := slices.IndexFunc(l.tasks, func(t *task) bool { return t.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("no task %d", id)
	}
	t := l.tasks[i]
	l.tasks = slices.Delete(l.tasks, i, i+1)
	return "Deleted task " + t.String(), nil
}

func (l *taskList) listTasks(_ context.Context, args *engine.ManagedArgs) (any, error) {
	tag := stringArg(args, "tag")
	limit := intArg(args, "limit")

	l.mu.Lock()
	defer l.mu.Unlock()

	var lines []string
	for _, t := range l.tasks {
		if tag != "" && !slices.Contains(t.Tags, tag) {
			continue
		}
		if limit > 0 && len(lines) == limit {
			break
		}
		lines = append(lines, t.String())
	}
	if len(lines) == 0 {
		return "No tasks.", nil
	}
	return strings.Join(lines, "\n"), nil
}

func (l *taskList) timer(_ context.Context, args *engine.ManagedArgs) (any, error) {
	minutes := intArg(args, "minutes")
	if minutes <= 0 {
		return nil, fmt.Errorf("timer must run for at least a minute")
	}
	ends := l.now().Add(time.Duration(minutes) * time.Minute)

	msg := fmt.Sprintf("Timer set for %s, ends at %s", time.Duration(minutes)*time.Minute, ends.Format("15:04"))
	if label := joinWords(args, "label"); label != "" {
		msg += ": " + label
	}
	return msg, nil
}

// find returns the task with id. Callers hold l.mu.
func (l *taskList) find(id int) *task {
	for _, t := range l.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (t *task) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d: %s", t.ID, t.Title)
	if t.Minutes > 0 {
		fmt.Fprintf(&b, " (%d min)", t.Minutes)
	}
	if !t.Due.IsZero() {
		fmt.Fprintf(&b, " due %s", t.Due.Format(time.DateOnly))
	}
	if t.Priority != "" {
		fmt.Fprintf(&b, " !%s", t.Priority)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(t.Tags, ", "))
	}
	return b.String()
}

// =============================================================================
// Fallback Handler
// =============================================================================

// echoHandler serves registry commands that have no demo handler by
// reporting what was understood.
func echoHandler(name string) operator.Handler {
	return func(_ context.Context, args *engine.ManagedArgs) (any, error) {
		return name + args.Summary(), nil
	}
}

// =============================================================================
// Argument Helpers
// =============================================================================

// wordList returns a multi-value argument as strings.
func wordList(args *engine.ManagedArgs, name string) []string {
	v, ok := args.Get(name)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return []string{rules.AsText(v)}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, rules.AsText(item))
	}
	return out
}

func joinWords(args *engine.ManagedArgs, name string) string {
	return strings.Join(wordList(args, name), " ")
}

func stringArg(args *engine.ManagedArgs, name string) string {
	v, ok := args.Get(name)
	if !ok {
		return ""
	}
	return rules.AsText(v)
}

func intArg(args *engine.ManagedArgs, name string) int {
	v, _ := args.Get(name)
	n, _ := v.(int)
	return n
}
