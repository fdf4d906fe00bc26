// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types shared across
handlers, the command engine, and the AI layer.

Goals are polymorphic on Type (savings, purchase, habit) over one table;
amounts use shopspring/decimal end to end. GoalCommand in commands.go is
the loosely-typed envelope the AI emits; see the goalcmd package for its
interpretation.
*/
package models
