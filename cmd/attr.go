package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var attrCmd = &cobra.Command{
	Use:   "attr",
	Short: "Manage note labels and relations",
}

var attrAddLabelCmd = &cobra.Command{
	Use:   "add-label <noteId> <name> [value]",
	Short: "Attach a label to a note",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runAttrAddLabel,
}

var attrAddRelationCmd = &cobra.Command{
	Use:   "add-relation <noteId> <name> <targetNoteId>",
	Short: "Attach a relation from one note to another",
	Args:  cobra.ExactArgs(3),
	RunE:  runAttrAddRelation,
}

var attrSetCmd = &cobra.Command{
	Use:   "set <attributeId> <value>",
	Short: "Change an attribute's value",
	Args:  cobra.ExactArgs(2),
	RunE:  runAttrSet,
}

var attrDeleteCmd = &cobra.Command{
	Use:   "delete <attributeId>",
	Short: "Remove an attribute",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttrDelete,
}

var attrInheritable bool

func init() {
	rootCmd.AddCommand(attrCmd)
	attrCmd.AddCommand(attrAddLabelCmd)
	attrCmd.AddCommand(attrAddRelationCmd)
	attrCmd.AddCommand(attrSetCmd)
	attrCmd.AddCommand(attrDeleteCmd)

	attrAddLabelCmd.Flags().BoolVarP(&attrInheritable, "inheritable", "i", false, "Descendants inherit this attribute")
	attrAddRelationCmd.Flags().BoolVarP(&attrInheritable, "inheritable", "i", false, "Descendants inherit this attribute")
}

func runAttrAddLabel(cmd *cobra.Command, args []string) error {
	noteID, name := args[0], args[1]
	value := ""
	if len(args) == 3 {
		value = args[2]
	}

	attr, err := app.Attributes.AddLabel(noteID, name, value, attrInheritable)
	if err != nil {
		return fmt.Errorf("failed to add label: %w", err)
	}

	fmt.Printf("Label #%s added to %s (attributeId: %s).\n", attr.Name, noteID, attr.AttributeID)
	return nil
}

func runAttrAddRelation(cmd *cobra.Command, args []string) error {
	noteID, name, target := args[0], args[1], args[2]

	attr, err := app.Attributes.AddRelation(noteID, name, target, attrInheritable)
	if err != nil {
		return fmt.Errorf("failed to add relation: %w", err)
	}

	fmt.Printf("Relation ~%s added from %s to %s (attributeId: %s).\n", attr.Name, noteID, target, attr.AttributeID)
	return nil
}

func runAttrSet(cmd *cobra.Command, args []string) error {
	attributeID, value := args[0], args[1]

	if err := app.Attributes.UpdateValue(attributeID, value); err != nil {
		return fmt.Errorf("failed to update attribute: %w", err)
	}

	fmt.Printf("Attribute %s updated.\n", attributeID)
	return nil
}

func runAttrDelete(cmd *cobra.Command, args []string) error {
	attributeID := args[0]

	if err := app.Attributes.Delete(attributeID); err != nil {
		return fmt.Errorf("failed to delete attribute: %w", err)
	}

	fmt.Printf("Attribute %s deleted.\n", attributeID)
	return nil
}
